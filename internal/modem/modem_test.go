package modem

import (
	"bytes"
	"testing"
	"time"

	"github.com/dl9sec/mercury-modem/internal/arq"
	"github.com/dl9sec/mercury-modem/internal/audio"
	"github.com/dl9sec/mercury-modem/internal/telemetry"
)

// stepUntil drives the modem loop until done reports true or the step
// budget runs out.
func stepUntil(t *testing.T, m *Modem, steps int, done func() bool) {
	t.Helper()
	now := time.Now()
	for i := 0; i < steps && !done(); i++ {
		now = now.Add(50 * time.Millisecond)
		if err := m.Step(now); err != nil {
			t.Fatal(err)
		}
	}
}

func TestModemLoopbackDeliversData(t *testing.T) {
	backend := audio.NewNullBackend()
	if err := backend.Open(1920); err != nil {
		t.Fatal(err)
	}
	stats := &telemetry.Stats{}
	m, err := NewModem(0, arq.RoleCommander, backend, stats)
	if err != nil {
		t.Fatal(err)
	}

	msg := []byte("the quick brown fox jumps over the lazy dog")
	var got []byte
	m.OnDeliver(func(b []byte) { got = append(got, b...) })
	m.Send(msg)

	stepUntil(t, m, 400, func() bool { return len(got) >= len(msg) })
	if !bytes.Equal(got, msg) {
		t.Fatalf("delivered %q, want %q", got, msg)
	}
	if stats.FramesReceived.Load() == 0 {
		t.Fatal("no frames counted as received")
	}
}

func TestModemSplitsLargePayloadAcrossFrames(t *testing.T) {
	backend := audio.NewNullBackend()
	if err := backend.Open(1920); err != nil {
		t.Fatal(err)
	}
	stats := &telemetry.Stats{}
	m, err := NewModem(1, arq.RoleCommander, backend, stats)
	if err != nil {
		t.Fatal(err)
	}

	msg := make([]byte, 3*m.pipeline.MaxPayload())
	for i := range msg {
		msg[i] = byte(i * 31)
	}
	var got []byte
	m.OnDeliver(func(b []byte) { got = append(got, b...) })
	m.Send(msg)

	stepUntil(t, m, 800, func() bool { return len(got) >= len(msg) })
	if !bytes.Equal(got, msg) {
		t.Fatal("reassembled stream differs from input")
	}
}

func TestRxWindowReordersAndDeduplicates(t *testing.T) {
	var w rxWindow

	f := func(seq uint16, s string) arq.Frame {
		return arq.Frame{Opcode: arq.OpData, Seq: seq, Payload: []byte(s)}
	}

	if out := w.accept(f(1, "b")); out != nil {
		t.Fatalf("out-of-order frame released early: %q", out)
	}
	if w.bitmap()&0b10 == 0 {
		t.Fatal("held frame missing from bitmap")
	}

	out := w.accept(f(0, "a"))
	if len(out) != 2 || string(out[0]) != "a" || string(out[1]) != "b" {
		t.Fatalf("release order wrong: %q", out)
	}

	// Both are now behind the base: duplicates.
	if out := w.accept(f(0, "a")); out != nil {
		t.Fatalf("duplicate released: %q", out)
	}
	if out := w.accept(f(1, "b")); out != nil {
		t.Fatalf("duplicate released: %q", out)
	}
}

func TestAckBurstRoundTrip(t *testing.T) {
	burst := AckBurst()
	if !DetectAck(burst) {
		t.Fatal("clean burst not detected")
	}
	if DetectAck(make([]float64, len(burst))) {
		t.Fatal("silence detected as ACK")
	}
}

func TestAckPatternShiftCoincidences(t *testing.T) {
	pat := ackSequence()[:ackTones]
	for shift := 1; shift < ackTones; shift++ {
		matches := 0
		for i := 0; i+shift < ackTones; i++ {
			if pat[i] == pat[i+shift] {
				matches++
			}
		}
		if matches > 1 {
			t.Fatalf("shift %d: %d coincidences, want <= 1", shift, matches)
		}
	}
}
