package telemetry

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	var s Stats
	s.FramesSent.Add(3)
	s.FrameLosses.Add(1)
	s.RingOverruns.Add(2)

	snap := s.Snapshot()
	if snap.FramesSent != 3 || snap.FrameLosses != 1 || snap.RingOverruns != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.FramesReceived != 0 {
		t.Fatalf("untouched counter should be zero, got %d", snap.FramesReceived)
	}
}

func TestStatsConcurrentUpdates(t *testing.T) {
	var s Stats
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.FramesReceived.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := s.Snapshot().FramesReceived; got != 8000 {
		t.Fatalf("FramesReceived = %d, want 8000", got)
	}
}

func TestSnapshotMarshalsToJSON(t *testing.T) {
	var s Stats
	s.BytesDelivered.Add(42)
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["bytesDelivered"] != 42 {
		t.Fatalf("bytesDelivered = %d, want 42", m["bytesDelivered"])
	}
}
