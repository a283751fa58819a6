package lifecycle

import "sync/atomic"

// Phase is the coarse process lifecycle phase reported by /health.
type Phase int32

const (
	Starting Phase = iota
	Serving
	ShuttingDown
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// Set moves the process to phase p. main sets Serving once the listener is up
// and ShuttingDown on SIGTERM/SIGINT.
func Set(p Phase) {
	phase.Store(int32(p))
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return Current() == ShuttingDown
}
