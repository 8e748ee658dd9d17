package pipeline

// Message is what travels on the channels between stages: either a package or the shutdown signal.
// The zero Message carries no package and is not a shutdown signal.
type Message struct {
	pkg      *Package
	shutdown bool
}

// Deliver wraps a package into a message.
func Deliver(pkg *Package) Message {
	return Message{pkg: pkg}
}

// Shutdown returns the message asking every unit downstream to stop once it has forwarded it.
func Shutdown() Message {
	return Message{shutdown: true}
}

// IsShutdown reports whether the message is the shutdown signal.
func (m Message) IsShutdown() bool {
	return m.shutdown
}

// Package returns the carried package. ok is false for the shutdown signal and for messages without a package.
func (m Message) Package() (*Package, bool) {
	if m.shutdown || m.pkg == nil {
		return nil, false
	}

	return m.pkg, true
}
