package wasix

import (
	"net"
	"sync"
	"time"

	"github.com/wasmerio/wasmer-runtime-go/runtime"
)

// defaultAcceptTimeout is the accept timeout a socket uses when it was
// never given an explicit AcceptTimeout socket option, matching the
// original's sock_accept_internal default.
const defaultAcceptTimeout = 30 * time.Second

// SockProto is the subset of socket protocols sock_open supports.
type SockProto byte

const (
	ProtoTCP SockProto = iota
	ProtoUDP
)

// SockType is the subset of socket types sock_open supports.
type SockType byte

const (
	SockStream SockType = iota
	SockDgram
)

// Socket is a guest-visible handle bound to a host listener or
// connection. sock_open accepts TCP with a stream type and UDP with a
// datagram type, and rejects every other (protocol, type) combination
// the same way the original does.
type Socket struct {
	mu       sync.Mutex
	proto    SockProto
	typ      SockType
	listener net.Listener
	timeout  time.Duration
}

// SocketTable allocates and tracks guest socket handles, the Go
// equivalent of WasiFd file-descriptor allocation for sockets.
type SocketTable struct {
	mu      sync.Mutex
	sockets map[int32]*Socket
	next    int32
}

// NewSocketTable returns an empty socket table.
func NewSocketTable() *SocketTable {
	return &SocketTable{sockets: make(map[int32]*Socket)}
}

func (t *SocketTable) insert(s *Socket) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.sockets[fd] = s
	return fd
}

func (t *SocketTable) get(fd int32) (*Socket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sockets[fd]
	return s, ok
}

// SockOpen implements sock_open: TCP requires a stream type and UDP a
// datagram type, matching the original's proto/type compatibility check
// exactly — every other combination is Notsup rather than a best-effort
// socket.
func SockOpen(table *SocketTable, proto SockProto, typ SockType) (int32, error) {
	switch proto {
	case ProtoTCP:
		if typ != SockStream {
			return 0, notsup(nil)
		}
	case ProtoUDP:
		if typ != SockDgram {
			return 0, notsup(nil)
		}
	default:
		return 0, notsup(nil)
	}
	fd := table.insert(&Socket{proto: proto, typ: typ, timeout: defaultAcceptTimeout})
	return fd, nil
}

// Bind attaches fd to a host listener obtained from rt's Networking
// capability. It must be called before Accept.
func Bind(table *SocketTable, rt *runtime.Runtime, fd int32, addr runtime.TCPListener) error {
	sock, ok := table.get(fd)
	if !ok {
		return &SyscallError{Errno: ErrnoBadf}
	}
	ln, err := rt.Networking.Listen(addr)
	if err != nil {
		return &SyscallError{Errno: ErrnoIO, Err: err}
	}
	sock.mu.Lock()
	sock.listener = ln
	sock.mu.Unlock()
	return nil
}

// SockAccept implements sock_accept: accept one connection on fd,
// honoring its configured accept timeout (30s by default). The NONBLOCK
// flag is computed in exactly one place, via computeAcceptFlags.
func SockAccept(table *SocketTable, fd int32, nonblocking bool) (net.Conn, AcceptFlags, error) {
	sock, ok := table.get(fd)
	if !ok {
		return nil, AcceptFlags{}, &SyscallError{Errno: ErrnoBadf}
	}
	sock.mu.Lock()
	ln := sock.listener
	timeout := sock.timeout
	sock.mu.Unlock()
	if ln == nil {
		return nil, AcceptFlags{}, &SyscallError{Errno: ErrnoBadf}
	}

	flags := computeAcceptFlags(nonblocking)

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, AcceptFlags{}, &SyscallError{Errno: ErrnoIO, Err: r.err}
		}
		return r.conn, flags, nil
	case <-time.After(timeout):
		return nil, AcceptFlags{}, &SyscallError{Errno: ErrnoTimedout}
	}
}

// AcceptFlags is the guest fd-flags sock_accept computes for the
// accepted connection's new file descriptor.
type AcceptFlags struct {
	Nonblock bool
}

// computeAcceptFlags is the single place sock_accept derives the
// returned NONBLOCK flag from the caller's request.
func computeAcceptFlags(nonblocking bool) AcceptFlags {
	return AcceptFlags{Nonblock: nonblocking}
}
