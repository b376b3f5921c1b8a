package runtime

import (
	"fmt"
	"net"
)

// TCPListener is a host:port pair a Networking capability pre-opens for
// the guest before it ever runs, mirroring the preopen-listener model
// sock_open binds guest handles against.
type TCPListener struct {
	Host string
	Port int
}

func (l TCPListener) String() string { return fmt.Sprintf("%s:%d", l.Host, l.Port) }

// Networking is the capability sock_open and sock_accept bind guest
// socket handles against. A test stub can substitute an in-memory
// listener set without touching the real network.
type Networking interface {
	// Listen opens a TCP listener the guest can accept connections on.
	// addr must match one of the pre-opened TCPListeners.
	Listen(addr TCPListener) (net.Listener, error)
}

// StaticNetworking holds a fixed set of TCP listener addresses chosen at
// construction time: the set of addresses a guest may bind is decided
// by the host embedder up front, not negotiated at runtime. No socket is
// opened until Listen or BuildAll is called.
type StaticNetworking struct {
	listeners []TCPListener
}

// NewStaticNetworking builds a Networking capability that only allows
// listening on the given pre-opened addresses.
func NewStaticNetworking(listeners ...TCPListener) *StaticNetworking {
	return &StaticNetworking{listeners: listeners}
}

// WithTCPListener returns a copy of n with host:port added to the
// pre-opened set, leaving n itself unmodified.
func (n *StaticNetworking) WithTCPListener(host string, port int) *StaticNetworking {
	clone := &StaticNetworking{listeners: append([]TCPListener(nil), n.listeners...)}
	clone.listeners = append(clone.listeners, TCPListener{Host: host, Port: port})
	return clone
}

// Listen opens addr if and only if it was pre-opened.
func (n *StaticNetworking) Listen(addr TCPListener) (net.Listener, error) {
	for _, allowed := range n.listeners {
		if allowed == addr {
			return net.Listen("tcp", addr.String())
		}
	}
	return nil, fmt.Errorf("runtime: %s was not pre-opened for listening", addr)
}

// BuildAll eagerly opens every pre-opened listener, closing any already
// opened on the first failure. Useful for an embedder that wants to
// fail fast at startup rather than on first guest accept.
func (n *StaticNetworking) BuildAll() ([]net.Listener, error) {
	opened := make([]net.Listener, 0, len(n.listeners))
	for _, addr := range n.listeners {
		ln, err := net.Listen("tcp", addr.String())
		if err != nil {
			for _, o := range opened {
				_ = o.Close()
			}
			return nil, fmt.Errorf("runtime: opening %s: %w", addr, err)
		}
		opened = append(opened, ln)
	}
	return opened, nil
}
