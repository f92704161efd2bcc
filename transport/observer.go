package transport

// Observer receives the faults the transport swallows. Implementations are
// called from the receive goroutine and from whichever goroutine calls Send,
// so they must be safe for concurrent use.
type Observer interface {
	// FrameDropped is called for every inbound frame that failed to decode.
	FrameDropped(err error)
	// SendFailed is called when an outbound message could not be written.
	SendFailed(err error)
	// ConnectionClosed is called once when the receive loop ends. err is nil
	// for a clean close by the peer or a local Close.
	ConnectionClosed(err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) FrameDropped(error)     {}
func (NopObserver) SendFailed(error)       {}
func (NopObserver) ConnectionClosed(error) {}
