// Package telemetry collects the modem's operating counters and pushes
// live status to any attached monitor UI over WebSocket. Every recoverable
// error in the pipeline lands in a counter here rather than in a returned
// error: frame loss, malformed messages, ring overruns and dropped audio
// are all normal events on an HF channel.
package telemetry

import "sync/atomic"

// Stats is the shared counter block updated by the modem loop and read by
// the telemetry hub. All fields are atomics so counters can be bumped
// without taking a lock on the hot path.
type Stats struct {
	FramesSent      atomic.Uint64
	FramesReceived  atomic.Uint64
	FrameLosses     atomic.Uint64 // sync failure or LDPC decode failure
	InvalidMessages atomic.Uint64 // CRC ok but malformed link-layer content
	DecodeFailures  atomic.Uint64 // not updated by the modem loop; failed LDPC decodes count in FrameLosses
	Retransmits     atomic.Uint64
	RingOverruns    atomic.Uint64
	RingUnderruns   atomic.Uint64 // not updated by the modem loop
	DroppedAudio    atomic.Uint64
	BytesDelivered  atomic.Uint64
}

// Snapshot is a plain-value copy of the counters, safe to marshal.
type Snapshot struct {
	FramesSent      uint64 `json:"framesSent"`
	FramesReceived  uint64 `json:"framesReceived"`
	FrameLosses     uint64 `json:"frameLosses"`
	InvalidMessages uint64 `json:"invalidMessages"`
	DecodeFailures  uint64 `json:"decodeFailures"`
	Retransmits     uint64 `json:"retransmits"`
	RingOverruns    uint64 `json:"ringOverruns"`
	RingUnderruns   uint64 `json:"ringUnderruns"`
	DroppedAudio    uint64 `json:"droppedAudio"`
	BytesDelivered  uint64 `json:"bytesDelivered"`
}

// Snapshot reads every counter once.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		FramesSent:      s.FramesSent.Load(),
		FramesReceived:  s.FramesReceived.Load(),
		FrameLosses:     s.FrameLosses.Load(),
		InvalidMessages: s.InvalidMessages.Load(),
		DecodeFailures:  s.DecodeFailures.Load(),
		Retransmits:     s.Retransmits.Load(),
		RingOverruns:    s.RingOverruns.Load(),
		RingUnderruns:   s.RingUnderruns.Load(),
		DroppedAudio:    s.DroppedAudio.Load(),
		BytesDelivered:  s.BytesDelivered.Load(),
	}
}
