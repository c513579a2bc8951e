package arq

import "time"

// PollTimer is a poll-based timer: nothing runs on a goroutine, the
// connection state machine calls Expired(now) on every tick of its own
// driving loop. This mirrors how Mercury's single-threaded ARQ poll loop
// needs to check several independent deadlines without spawning a
// goroutine per timer.
type PollTimer struct {
	Interval time.Duration
	deadline time.Time
	running  bool
}

// NewPollTimer builds a stopped timer with the given interval.
func NewPollTimer(interval time.Duration) *PollTimer {
	return &PollTimer{Interval: interval}
}

// Start (re)arms the timer from now.
func (t *PollTimer) Start(now time.Time) {
	t.deadline = now.Add(t.Interval)
	t.running = true
}

// Stop disarms the timer.
func (t *PollTimer) Stop() {
	t.running = false
}

// Running reports whether the timer is armed.
func (t *PollTimer) Running() bool { return t.running }

// Expired reports whether the timer is armed and its deadline has passed.
func (t *PollTimer) Expired(now time.Time) bool {
	return t.running && !now.Before(t.deadline)
}

// Timers bundles the five poll-based deadlines a Connection tracks:
// connection setup, data-frame retransmit, keepalive,
// ACK-wait, and teardown.
type Timers struct {
	Connect   *PollTimer
	Retransmit *PollTimer
	KeepAlive *PollTimer
	AckWait   *PollTimer
	Close     *PollTimer
}

// NewTimers builds the standard timer set with the given intervals.
func NewTimers(connect, retransmit, keepAlive, ackWait, closeT time.Duration) *Timers {
	return &Timers{
		Connect:    NewPollTimer(connect),
		Retransmit: NewPollTimer(retransmit),
		KeepAlive:  NewPollTimer(keepAlive),
		AckWait:    NewPollTimer(ackWait),
		Close:      NewPollTimer(closeT),
	}
}
