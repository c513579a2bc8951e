package modem

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/dl9sec/mercury-modem/internal/arq"
	"github.com/dl9sec/mercury-modem/internal/audio"
	"github.com/dl9sec/mercury-modem/internal/config"
	"github.com/dl9sec/mercury-modem/internal/ringbuffer"
	"github.com/dl9sec/mercury-modem/internal/telemetry"
)

const (
	// ringCapacity sizes each audio ring: several frames of headroom at
	// 48kHz, rounded to a power of two.
	ringCapacity = 1 << 18

	// rxKeepFactor bounds the receive accumulation buffer to this many
	// frame lengths before old samples are discarded.
	rxKeepFactor = 3
)

// Modem is the single cooperative loop that drains the capture ring, runs
// the receive pipeline, drives the ARQ state machine, and feeds the
// playback ring. All DSP and ARQ state is owned by this loop; the rings
// are the only structures it shares with the audio threads.
type Modem struct {
	pipeline    *Pipeline
	presetIndex int
	conn        *arq.Connection
	backend     audio.Backend
	stats       *telemetry.Stats

	rxRing *ringbuffer.Float32Ring
	txRing *ringbuffer.Float32Ring

	appTx   [][]byte
	deliver func([]byte)

	rxWin rxWindow

	rxBuf []float64
	// lastAttempt is the rxBuf length at the previous failed decode;
	// another attempt waits until meaningfully more samples arrive.
	lastAttempt int
	shutdown    atomic.Bool

	snrDown float64

	// pendingPreset is the gear target announced by SET_CONFIG but not yet
	// acknowledged; -1 when no shift is in flight.
	pendingPreset int

	// maxDataPreset is the highest preset index whose frames can carry
	// link-layer traffic; the gear shifter saturates here.
	maxDataPreset int
}

// NewModem builds a modem on the given preset table index, role, and
// audio backend. stats may not be nil; every recoverable error lands
// there.
func NewModem(presetIndex int, role arq.Role, backend audio.Backend, stats *telemetry.Stats) (*Modem, error) {
	if presetIndex < 0 || presetIndex >= len(config.Presets) {
		return nil, fmt.Errorf("modem: preset index %d out of range", presetIndex)
	}
	pl, err := NewPipeline(config.Presets[presetIndex], presetIndex)
	if err != nil {
		return nil, err
	}
	rxRing, err := ringbuffer.NewFloat32Ring(ringCapacity)
	if err != nil {
		return nil, err
	}
	txRing, err := ringbuffer.NewFloat32Ring(ringCapacity)
	if err != nil {
		return nil, err
	}
	maxData := 0
	for i, p := range config.Presets {
		if p.Mod == config.ModQAM {
			maxData = i
		}
	}
	conn := arq.NewConnection(role, 32, maxData, 3)
	if presetIndex <= maxData {
		// The gear level tracks the preset index; start them aligned.
		conn.Gear.Level = presetIndex
	}
	return &Modem{
		pipeline:      pl,
		presetIndex:   presetIndex,
		conn:          conn,
		backend:       backend,
		stats:         stats,
		rxRing:        rxRing,
		txRing:        txRing,
		pendingPreset: -1,
		maxDataPreset: maxData,
	}, nil
}

// Connection exposes the ARQ state machine for the control surface.
func (m *Modem) Connection() *arq.Connection { return m.conn }

// Preset reports the active preset.
func (m *Modem) Preset() config.Preset { return m.pipeline.Preset }

// SNRDown is the most recent receive-side SNR estimate (linear).
func (m *Modem) SNRDown() float64 { return m.snrDown }

// OnDeliver installs the in-order application delivery callback.
func (m *Modem) OnDeliver(fn func([]byte)) { m.deliver = fn }

// Send splits data into frame-sized chunks and queues them for the send
// window.
func (m *Modem) Send(data []byte) {
	max := m.pipeline.MaxPayload() - 14 // link-layer header and CRC
	if max < 1 {
		max = 1
	}
	for len(data) > 0 {
		n := len(data)
		if n > max {
			n = max
		}
		m.appTx = append(m.appTx, append([]byte(nil), data[:n]...))
		data = data[n:]
	}
}

// SetPreset switches the active waveform, rebuilding the pipeline. Both
// ends perform this after a SET_CONFIG exchange.
func (m *Modem) SetPreset(idx int) error {
	if idx < 0 || idx >= len(config.Presets) {
		return fmt.Errorf("modem: preset index %d out of range", idx)
	}
	pl, err := NewPipeline(config.Presets[idx], idx)
	if err != nil {
		return err
	}
	m.pipeline = pl
	m.presetIndex = idx
	m.rxBuf = nil
	m.lastAttempt = 0
	log.Printf("modem: switched to preset %d (%s)", idx, pl.Preset.Name)
	return nil
}

// Shutdown asks the run loop to drain and exit.
func (m *Modem) Shutdown() { m.shutdown.Store(true) }

// Run executes Step until Shutdown, sleeping period between iterations.
func (m *Modem) Run(period time.Duration) {
	for !m.shutdown.Load() {
		if err := m.Step(time.Now()); err != nil {
			log.Printf("modem: %v", err)
			return
		}
		time.Sleep(period)
	}
	m.drainTx()
}

// Step performs one poll-loop iteration: pump audio in, attempt a frame
// decode, drive ARQ timers, transmit pending frames, pump audio out.
func (m *Modem) Step(now time.Time) error {
	if err := m.pumpCapture(); err != nil {
		return err
	}
	m.drainRxRing()
	m.tryReceive(now)
	m.driveTransmit(now)
	return m.drainTx()
}

// pumpCapture moves one buffer from the capture device into the rx ring.
func (m *Modem) pumpCapture() error {
	samples, err := m.backend.Read()
	if err != nil {
		return fmt.Errorf("modem: capture: %w", err)
	}
	if n := m.rxRing.Write(samples); n < len(samples) {
		m.stats.RingOverruns.Add(1)
	}
	return nil
}

// drainRxRing appends everything queued in the rx ring to the working
// sample buffer, bounded to rxKeepFactor frames.
func (m *Modem) drainRxRing() {
	buf := make([]float32, 4096)
	for {
		n := m.rxRing.Read(buf)
		if n == 0 {
			break
		}
		for _, s := range buf[:n] {
			m.rxBuf = append(m.rxBuf, float64(s))
		}
	}
	limit := rxKeepFactor * m.pipeline.PassbandFrameSamples()
	if len(m.rxBuf) > limit {
		drop := len(m.rxBuf) - limit
		m.rxBuf = m.rxBuf[drop:]
		if m.lastAttempt > drop {
			m.lastAttempt -= drop
		} else {
			m.lastAttempt = 0
		}
	}
}

// tryReceive attempts one frame decode from the accumulated samples.
func (m *Modem) tryReceive(now time.Time) {
	frame := m.pipeline.PassbandFrameSamples()
	if len(m.rxBuf) < frame || len(m.rxBuf)-m.lastAttempt < frame/4 {
		return
	}
	payload, snr, err := m.pipeline.ReceivePassband(m.rxBuf)
	if err != nil {
		// Two frames of history stay buffered so a frame only partially
		// captured this pump is still found whole on a later attempt;
		// drainRxRing bounds the total.
		m.stats.FrameLosses.Add(1)
		m.lastAttempt = len(m.rxBuf)
		return
	}
	if consumed := m.pipeline.ConsumedPassband(); consumed < len(m.rxBuf) {
		m.rxBuf = m.rxBuf[consumed:]
	} else {
		m.rxBuf = nil
	}
	m.lastAttempt = 0
	m.snrDown = snr
	m.stats.FramesReceived.Add(1)

	f, err := arq.Unmarshal(payload)
	if err != nil {
		m.stats.InvalidMessages.Add(1)
		return
	}
	m.handleFrame(f, now)
}

// handleFrame routes one validated link-layer frame.
func (m *Modem) handleFrame(f arq.Frame, now time.Time) {
	switch f.Opcode {
	case arq.OpData:
		for _, chunk := range m.rxWin.accept(f) {
			m.stats.BytesDelivered.Add(uint64(len(chunk)))
			if m.deliver != nil {
				m.deliver(chunk)
			}
		}
		// Batch the acknowledgment: the ACK_MULTI goes out when the
		// receive window closes, covering every frame of the batch.
		if !m.conn.Timers.AckWait.Running() {
			m.conn.Timers.AckWait.Start(now)
		}

	case arq.OpSetConfig:
		if len(f.Payload) == 0 || int(f.Payload[0]) >= len(config.Presets) {
			log.Printf("modem: refused SET_CONFIG: bad preset")
			return
		}
		// Acknowledge on the old preset, then switch, so the peer can
		// still decode the acknowledgment.
		m.queueFrame(arq.Frame{Opcode: arq.OpAck, Seq: f.Seq})
		if err := m.SetPreset(int(f.Payload[0])); err != nil {
			log.Printf("modem: refused SET_CONFIG: %v", err)
		}

	case arq.OpAck:
		if m.pendingPreset >= 0 {
			target := m.pendingPreset
			m.pendingPreset = -1
			if err := m.SetPreset(target); err != nil {
				log.Printf("modem: gear shift: %v", err)
			}
			return
		}
		if resp, err := m.conn.HandleControl(f, now); err == nil && resp != nil {
			m.queueFrame(*resp)
		}

	case arq.OpAckMulti:
		if _, err := m.conn.HandleControl(f, now); err != nil {
			m.stats.InvalidMessages.Add(1)
			return
		}
		if m.conn.Window.Empty() {
			m.conn.Timers.Retransmit.Stop()
		}
		m.recordOutcome(m.conn.Window.Empty())

	default:
		resp, err := m.conn.HandleControl(f, now)
		if err != nil {
			m.stats.InvalidMessages.Add(1)
			return
		}
		if resp != nil {
			m.queueFrame(*resp)
		}
	}
}

// recordOutcome feeds one batch outcome to the gear shifter and, if the
// gear changed, announces the new preset with SET_CONFIG. The local
// switch waits for the peer's acknowledgment so both ends move together.
func (m *Modem) recordOutcome(success bool) {
	if m.conn.Role != arq.RoleCommander || m.pendingPreset >= 0 {
		return
	}
	if !m.conn.RecordResult(success) {
		return
	}
	target := m.conn.Gear.Level
	if target > m.maxDataPreset {
		target = m.maxDataPreset
	}
	if target == m.presetIndex {
		return
	}
	m.pendingPreset = target
	m.queueFrame(arq.Frame{Opcode: arq.OpSetConfig, Payload: []byte{byte(target)}})
}

// driveTransmit admits queued app data into the send window and
// retransmits anything whose timer expired.
func (m *Modem) driveTransmit(now time.Time) {
	w := m.conn.Window
	for len(m.appTx) > 0 && w.CanSend() && m.txRoom() {
		f := w.Push(arq.OpData, m.appTx[0])
		m.appTx = m.appTx[1:]
		m.queueFrame(f)
		m.conn.Timers.Retransmit.Start(now)
	}

	if m.conn.Timers.Retransmit.Expired(now) {
		for _, f := range w.Unacked() {
			if !m.txRoom() {
				break
			}
			m.stats.Retransmits.Add(1)
			m.queueFrame(f)
		}
		if w.Empty() {
			m.conn.Timers.Retransmit.Stop()
		} else {
			m.recordOutcome(false)
			m.conn.Timers.Retransmit.Start(now)
		}
	}

	// Close of the receive window: emit the batched acknowledgment.
	if m.conn.Timers.AckWait.Expired(now) {
		m.conn.Timers.AckWait.Stop()
		m.queueFrame(arq.Frame{Opcode: arq.OpAckMulti, AckSeq: m.rxWin.base, Bitmap: m.rxWin.bitmap()})
	}
}

// txRoom reports whether the tx ring can take a whole frame without
// tearing it.
func (m *Modem) txRoom() bool {
	return m.txRing.Free() >= m.pipeline.PassbandFrameSamples()
}

// queueFrame modulates one link frame and stages its audio in the tx
// ring.
func (m *Modem) queueFrame(f arq.Frame) {
	if f.ConnID == 0 {
		f.ConnID = m.conn.ConnID
	}
	samples, err := m.pipeline.TransmitPassband(f.Marshal())
	if err != nil {
		log.Printf("modem: transmit %s: %v", f.Opcode, err)
		return
	}
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s)
	}
	if n := m.txRing.Write(out); n < len(out) {
		m.stats.DroppedAudio.Add(uint64(len(out) - n))
	}
	m.stats.FramesSent.Add(1)
}

// drainTx moves staged audio from the tx ring to the playback device.
func (m *Modem) drainTx() error {
	buf := make([]float32, 4096)
	for {
		n := m.txRing.Read(buf)
		if n == 0 {
			return nil
		}
		if err := m.backend.Write(buf[:n]); err != nil {
			return fmt.Errorf("modem: playback: %w", err)
		}
	}
}

// rxWindow reassembles received data frames into in-order delivery:
// out-of-order arrivals are held, duplicates dropped, and everything
// contiguous from the base sequence released at once.
type rxWindow struct {
	base uint16
	held map[uint16][]byte
}

// accept stores one data frame and returns the chunks now deliverable in
// order.
func (w *rxWindow) accept(f arq.Frame) [][]byte {
	if w.held == nil {
		w.held = make(map[uint16][]byte)
	}
	// Behind the base means already delivered: a duplicate.
	if int16(f.Seq-w.base) < 0 {
		return nil
	}
	if _, dup := w.held[f.Seq]; !dup {
		w.held[f.Seq] = append([]byte(nil), f.Payload...)
	}

	var out [][]byte
	for {
		chunk, ok := w.held[w.base]
		if !ok {
			break
		}
		delete(w.held, w.base)
		out = append(out, chunk)
		w.base++
	}
	return out
}

// bitmap reports which of the 32 sequences at and above base have been
// received but not yet released (bit i = base+i).
func (w *rxWindow) bitmap() uint32 {
	var b uint32
	for seq := range w.held {
		d := seq - w.base
		if d < 32 {
			b |= 1 << d
		}
	}
	return b
}
