package hub

import (
	"time"
)

// ConnState is the connection state machine:
// disconnected -> connecting -> connected, back to disconnected on any
// close or error that is not an intentional shutdown.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the state name for logging and the status endpoint.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// BackoffPolicy computes reconnect delays from the consecutive failure
// count. Pure and unit-testable without a socket: exponential from
// BaseDelay, capped at CapDelay for the first CapAttempts failures,
// then fixed at LongDelay until a success resets the count.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	CapDelay    time.Duration
	LongDelay   time.Duration
	CapAttempts int
}

// DefaultBackoffPolicy is the production reconnect schedule:
// 1s, 2s, 4s, 8s, 10s, then 60s.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:   1 * time.Second,
		CapDelay:    10 * time.Second,
		LongDelay:   60 * time.Second,
		CapAttempts: 5,
	}
}

// Delay returns the wait after the given number of consecutive
// failures. Zero failures means no wait.
func (p BackoffPolicy) Delay(consecutiveFailures int) time.Duration {
	if consecutiveFailures <= 0 {
		return 0
	}

	if consecutiveFailures > p.CapAttempts {
		return p.LongDelay
	}

	delay := p.BaseDelay
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= p.CapDelay {
			return p.CapDelay
		}
	}

	if delay > p.CapDelay {
		return p.CapDelay
	}
	return delay
}
