package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dl9sec/mercury-modem/internal/arq"
	"github.com/dl9sec/mercury-modem/internal/audio"
	"github.com/dl9sec/mercury-modem/internal/config"
	"github.com/dl9sec/mercury-modem/internal/modem"
	"github.com/dl9sec/mercury-modem/internal/platform"
	"github.com/dl9sec/mercury-modem/internal/tcpbridge"
	"github.com/dl9sec/mercury-modem/internal/telemetry"
)

func main() {
	cpu := flag.Int("c", 3, "pin the modem thread to this CPU core (-1 disables)")
	mode := flag.String("m", "ARQ", "operating mode: ARQ | TX | RX | TX_TEST | RX_TEST | PLOT_BASEBAND | PLOT_PASSBAND")
	list := flag.Bool("l", false, "list preset indices with their net bitrates and exit")
	devices := flag.Bool("devices", false, "list audio devices and exit")
	preset := flag.Int("p", 1, "preset index")
	callsign := flag.String("s", "NOCALL", "station callsign")
	controlAddr := flag.String("control", "127.0.0.1:7002", "control socket listen address")
	dataAddr := flag.String("data", "127.0.0.1:7003", "data socket listen address")
	monitorAddr := flag.String("monitor", "", "telemetry WebSocket listen address (empty disables)")
	flag.Parse()

	if *list {
		for i, p := range config.Presets {
			fmt.Printf("%2d  %-16s %8.0f bit/s\n", i, p.Name, p.NetBitrate())
		}
		return
	}
	if *devices {
		if err := audio.InitPortAudio(); err != nil {
			log.Fatalf("mercury: %v", err)
		}
		defer audio.TerminatePortAudio()
		if err := audio.PrintDevices(); err != nil {
			log.Fatalf("mercury: %v", err)
		}
		return
	}
	if *preset < 0 || *preset >= len(config.Presets) {
		fmt.Fprintf(os.Stderr, "mercury: preset index %d out of range [0,%d]\n", *preset, len(config.Presets)-1)
		os.Exit(2)
	}

	caps := platform.Detect()
	log.Printf("mercury: %s (%d cores)", caps.BrandName, caps.LogicalCPU)
	if *cpu >= 0 {
		runtime.LockOSThread()
		if err := platform.PinToCPU(*cpu); err != nil {
			log.Printf("mercury: %v (continuing unpinned)", err)
		}
	}

	var err error
	switch *mode {
	case "ARQ":
		err = runARQ(*preset, *callsign, *controlAddr, *dataAddr, *monitorAddr)
	case "TX":
		err = runOneShot(*preset, arq.RoleCommander)
	case "RX":
		err = runOneShot(*preset, arq.RoleResponder)
	case "TX_TEST", "RX_TEST":
		err = runSelfTest(*preset)
	case "PLOT_BASEBAND":
		err = runPlot(*preset, false)
	case "PLOT_PASSBAND":
		err = runPlot(*preset, true)
	default:
		fmt.Fprintf(os.Stderr, "mercury: unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("mercury: %v", err)
	}
}

// runARQ is the normal operating mode: sound card in and out, ARQ link,
// TCP control and data sockets, optional telemetry.
func runARQ(presetIdx int, callsign, controlAddr, dataAddr, monitorAddr string) error {
	if err := audio.InitPortAudio(); err != nil {
		return err
	}
	defer audio.TerminatePortAudio()

	backend := audio.NewPortAudioBackend()
	if err := backend.Open(1920); err != nil { // 40ms buffers at 48kHz
		return err
	}
	defer backend.Close()
	if err := backend.Start(); err != nil {
		return err
	}

	stats := &telemetry.Stats{}
	m, err := modem.NewModem(presetIdx, arq.RoleResponder, backend, stats)
	if err != nil {
		return err
	}
	m.Connection().MyCallsign = callsign

	data := tcpbridge.NewDataServer(func(b []byte) { m.Send(b) })
	if err := data.Listen(dataAddr); err != nil {
		return err
	}
	defer data.Close()
	m.OnDeliver(data.Deliver)

	control := tcpbridge.NewControlServer(callsign, &arqControl{m: m})
	if err := control.Listen(controlAddr); err != nil {
		return err
	}
	defer control.Close()

	if monitorAddr != "" {
		hub := telemetry.NewHub()
		go serveMonitor(monitorAddr, hub, m, stats)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("mercury: shutting down")
		m.Shutdown()
	}()

	m.Run(10 * time.Millisecond)
	return nil
}

// serveMonitor runs the telemetry WebSocket endpoint and pushes a status
// snapshot once a second.
func serveMonitor(addr string, hub *telemetry.Hub, m *modem.Modem, stats *telemetry.Stats) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler)
	go func() {
		for range time.Tick(time.Second) {
			hub.BroadcastStats(stats.Snapshot())
			hub.BroadcastLink(telemetry.LinkPayload{
				Role:      m.Connection().Role.String(),
				LinkState: m.Connection().State.String(),
				Preset:    m.Preset().Name,
				SNRDown:   m.SNRDown(),
			})
		}
	}()
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("mercury: monitor: %v", err)
	}
}

// arqControl adapts the control socket to the modem's connection state
// machine.
type arqControl struct {
	m *modem.Modem
}

func (c *arqControl) OnConnect(peer, band string) error {
	_, err := c.m.Connection().OpenAsCommander(peer, time.Now())
	return err
}

func (c *arqControl) OnDisconnect() {
	c.m.Connection().Close(time.Now())
}

// runOneShot runs a bare one-directional modem without the TCP surfaces,
// for keyboard-to-keyboard style testing.
func runOneShot(presetIdx int, role arq.Role) error {
	if err := audio.InitPortAudio(); err != nil {
		return err
	}
	defer audio.TerminatePortAudio()

	backend := audio.NewPortAudioBackend()
	if err := backend.Open(1920); err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.Start(); err != nil {
		return err
	}

	stats := &telemetry.Stats{}
	m, err := modem.NewModem(presetIdx, role, backend, stats)
	if err != nil {
		return err
	}
	m.OnDeliver(func(b []byte) { os.Stdout.Write(b) })

	if role == arq.RoleCommander {
		buf := make([]byte, 4096)
		n, _ := os.Stdin.Read(buf)
		m.Send(buf[:n])
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		m.Shutdown()
	}()
	m.Run(10 * time.Millisecond)
	return nil
}

// runSelfTest loops a frame through the full pipeline over the null
// backend and reports success or failure.
func runSelfTest(presetIdx int) error {
	backend := audio.NewNullBackend()
	if err := backend.Open(1920); err != nil {
		return err
	}
	defer backend.Close()

	stats := &telemetry.Stats{}
	tx, err := modem.NewModem(presetIdx, arq.RoleCommander, backend, stats)
	if err != nil {
		return err
	}

	msg := []byte("MERCURY SELF TEST")
	var got []byte
	tx.OnDeliver(func(b []byte) { got = append(got, b...) })
	tx.Send(msg)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(got) < len(msg) {
		if err := tx.Step(time.Now()); err != nil {
			return err
		}
	}
	if string(got) != string(msg) {
		return fmt.Errorf("self test failed: sent %q, got %q", msg, got)
	}
	fmt.Println("self test passed")
	return nil
}

// runPlot dumps one frame's samples as CSV for offline inspection.
func runPlot(presetIdx int, passband bool) error {
	pl, err := modem.NewPipeline(config.Presets[presetIdx], presetIdx)
	if err != nil {
		return err
	}
	payload := make([]byte, pl.MaxPayload())
	for i := range payload {
		payload[i] = byte(i)
	}

	if passband {
		samples, err := pl.TransmitPassband(payload)
		if err != nil {
			return err
		}
		for i, s := range samples {
			fmt.Printf("%d,%g\n", i, s)
		}
		return nil
	}
	samples, err := pl.Transmit(payload)
	if err != nil {
		return err
	}
	for i, s := range samples {
		fmt.Printf("%d,%g,%g\n", i, real(s), imag(s))
	}
	return nil
}
