package syncstore

// State is the lifecycle state of a Store's subscription
type State uint8

const (
	// StateUnauthenticated is the initial state, before any subscription
	StateUnauthenticated State = iota

	// StateSyncing indicates an active subscription updating the snapshot
	StateSyncing

	// StateFailed indicates the subscription was cancelled. The snapshot is
	// frozen until BeginSync is called again.
	StateFailed

	// StateClosed indicates the store was closed and can no longer be used
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSyncing:
		return "syncing"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
