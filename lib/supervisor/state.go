package supervisor

// State is the supervisor's position in the handoff cycle.
type State int32

const (
	// Idle: the instance owns the socket and accepts normally.
	Idle State = iota
	// HandoffRequested: a replacement instance is being started.
	HandoffRequested
	// SocketTransferred: the replacement accepts on the shared socket; this
	// instance no longer does.
	SocketTransferred
	// OldDraining: in-flight requests are finishing, bounded by the grace period.
	OldDraining
	// Stopped: the server has returned.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HandoffRequested:
		return "handoff_requested"
	case SocketTransferred:
		return "socket_transferred"
	case OldDraining:
		return "old_draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
