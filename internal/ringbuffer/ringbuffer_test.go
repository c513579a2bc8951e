package ringbuffer

import (
	"sync"
	"testing"
)

func TestNewFloat32RingRejectsNonPow2(t *testing.T) {
	if _, err := NewFloat32Ring(100); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
}

func TestFloat32RingWriteReadRoundTrip(t *testing.T) {
	r, err := NewFloat32Ring(16)
	if err != nil {
		t.Fatal(err)
	}
	in := []float32{1, 2, 3, 4, 5}
	n := r.Write(in)
	if n != len(in) {
		t.Fatalf("wrote %d, want %d", n, len(in))
	}
	out := make([]float32, len(in))
	got := r.Read(out)
	if got != len(in) {
		t.Fatalf("read %d, want %d", got, len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: got %v want %v", i, out[i], in[i])
		}
	}
}

func TestFloat32RingDropsOnOverrun(t *testing.T) {
	r, err := NewFloat32Ring(4)
	if err != nil {
		t.Fatal(err)
	}
	n := r.Write([]float32{1, 2, 3, 4, 5, 6})
	if n != 4 {
		t.Fatalf("wrote %d, want 4 (ring capacity)", n)
	}
	if r.Free() != 0 {
		t.Fatalf("free = %d, want 0", r.Free())
	}
}

func TestFloat32RingWraparound(t *testing.T) {
	r, err := NewFloat32Ring(4)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 2)
	for round := 0; round < 5; round++ {
		in := []float32{float32(round), float32(round) + 0.5}
		r.Write(in)
		r.Read(buf)
		if buf[0] != in[0] || buf[1] != in[1] {
			t.Fatalf("round %d: got %v, want %v", round, buf, in)
		}
	}
}

func TestFloat32RingSPSCConcurrent(t *testing.T) {
	r, err := NewFloat32Ring(64)
	if err != nil {
		t.Fatal(err)
	}
	const total = 10000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			n := r.Write([]float32{float32(i)})
			if n == 1 {
				i++
			}
		}
	}()

	sum := 0.0
	go func() {
		defer wg.Done()
		buf := make([]float32, 1)
		for i := 0; i < total; {
			n := r.Read(buf)
			if n == 1 {
				sum += float64(buf[0])
				i++
			}
		}
	}()

	wg.Wait()
	want := float64(total-1) * total / 2
	if sum != want {
		t.Fatalf("sum = %v, want %v", sum, want)
	}
}

func TestNewMPMCRingRejectsNonPow2(t *testing.T) {
	if _, err := NewMPMCRing(10); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
}

func TestMPMCRingEnqueueDequeue(t *testing.T) {
	r, err := NewMPMCRing(8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		if !r.Enqueue(float32(i)) {
			t.Fatalf("enqueue %d failed unexpectedly", i)
		}
	}
	if r.Enqueue(99) {
		t.Fatal("enqueue on full ring should fail")
	}
	for i := 0; i < 8; i++ {
		v, ok := r.Dequeue()
		if !ok {
			t.Fatalf("dequeue %d failed unexpectedly", i)
		}
		if v != float32(i) {
			t.Fatalf("dequeue %d: got %v, want %v", i, v, i)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Fatal("dequeue on empty ring should fail")
	}
}

func TestMPMCRingConcurrentProducers(t *testing.T) {
	r, err := NewMPMCRing(2048)
	if err != nil {
		t.Fatal(err)
	}
	const producers = 4
	const perProducer = 500
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !r.Enqueue(1) {
				}
			}
		}()
	}
	wg.Wait()

	count := 0
	for {
		if _, ok := r.Dequeue(); ok {
			count++
		} else {
			break
		}
	}
	if count != producers*perProducer {
		t.Fatalf("dequeued %d items, want %d", count, producers*perProducer)
	}
}
