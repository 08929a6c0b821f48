package stream

// A Beat is a payload tagged with a packet-final marker.
type Beat[T any] struct {
	Payload T
	Last    bool

	// Padding marks a beat substituted for data that never arrived.
	Padding bool
}
