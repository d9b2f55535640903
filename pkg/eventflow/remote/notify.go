package remote

// Offer delivers a value to a channel with a buffer of one, replacing any
// value that has not been consumed yet. Only the newest full child set
// matters to a subscriber, so a slow consumer converges on the latest state
// instead of blocking the producer.
//
// Offer must only be called by the single producer of ch.
func Offer[T any](ch chan T, n T) {
	select {
	case ch <- n:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	ch <- n
}
