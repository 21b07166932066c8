// Package session drives one relay connection attempt end to end: dial,
// handshake, and the paired sender/receiver tasks that keep the wire fed
// and drained until disconnect.
//
// Follows original_source/src/ConnectionManager.cpp (PerformHandshake,
// the send/receive worker threads) for protocol sequencing, with state
// guarded by the same mutex/condvar-guarded worker-goroutine shape used
// throughout this codebase.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relaykey/relaykey/internal/codec"
	"github.com/relaykey/relaykey/internal/connstate"
	"github.com/relaykey/relaykey/internal/protocol"
	"github.com/relaykey/relaykey/internal/queue"
	"github.com/relaykey/relaykey/internal/transport"
)

const (
	handshakeStepDelay  = 30 * time.Millisecond
	handshakeMaxAttempt = 100
	recvWouldBlockSleep = time.Millisecond
)

// Router dispatches one decoded inbound frame. Implemented by
// internal/router.Router.
type Router interface {
	Route(frame []byte)
}

// Dialer opens a relay connection. Implemented by transport.Dial; a seam
// for tests that want to avoid a real socket.
type Dialer interface {
	Dial(cfg transport.Config) (*transport.Transport, error)
}

type dialerFunc func(transport.Config) (*transport.Transport, error)

func (f dialerFunc) Dial(cfg transport.Config) (*transport.Transport, error) { return f(cfg) }

// DefaultDialer dials a real TLS transport.
var DefaultDialer Dialer = dialerFunc(transport.Dial)

// Session owns one connection attempt's transport, send queue, and state.
type Session struct {
	logger *slog.Logger
	dialer Dialer
	router Router

	state *connstate.Manager
	queue *queue.SendQueue

	mu        sync.Mutex
	transport *transport.Transport
	acc       codec.Accumulator

	ready boolFlag

	disconnectOnce sync.Once
	onDisconnect   func()

	wg sync.WaitGroup
}

// boolFlag is a tiny race-free latch; isolated so Session doesn't need a
// second mutex just for the handshake-complete bit.
type boolFlag struct {
	mu  sync.Mutex
	set bool
}

func (b *boolFlag) Set() {
	b.mu.Lock()
	b.set = true
	b.mu.Unlock()
}

func (b *boolFlag) Clear() {
	b.mu.Lock()
	b.set = false
	b.mu.Unlock()
}

func (b *boolFlag) Get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set
}

// New constructs a Session. router must be non-nil; dialer defaults to
// DefaultDialer when nil.
func New(router Router, logger *slog.Logger, dialer Dialer) *Session {
	if dialer == nil {
		dialer = DefaultDialer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		logger: logger,
		dialer: dialer,
		router: router,
		state:  connstate.New(),
		queue:  queue.New(0),
	}
}

// OnStateChange forwards connection lifecycle transitions, for the
// supervisor's reconnect loop and diagnostics.
func (s *Session) OnStateChange(fn connstate.Observer) {
	s.state.OnChange(fn)
}

// OnDisconnect registers the callback fired exactly once per connection
// attempt when the session leaves Connected for any reason (spec.md
// invariant I5: disconnect is idempotent and its cleanup runs once).
func (s *Session) OnDisconnect(fn func()) {
	s.onDisconnect = fn
}

// Status reports the current connection lifecycle state.
func (s *Session) Status() connstate.Status {
	return s.state.Get()
}

// Connect dials the relay and transitions Disconnected -> Connecting ->
// Connected on success, or back to Disconnected on failure.
func (s *Session) Connect(cfg transport.Config) error {
	if !s.state.Try(connstate.Disconnected, connstate.Connecting) {
		return fmt.Errorf("connect: session not in disconnected state (currently %s)", s.state.Get())
	}

	tr, err := s.dialer.Dial(cfg)
	if err != nil {
		s.state.Set(connstate.Disconnected)
		return &TransportErr{Op: "connect", Err: err}
	}

	s.mu.Lock()
	s.transport = tr
	s.acc = codec.Accumulator{}
	s.mu.Unlock()

	if !s.state.Try(connstate.Connecting, connstate.Connected) {
		_ = tr.Close()
		return fmt.Errorf("connect: session state changed concurrently")
	}
	return nil
}

// Start spawns the sender and receiver tasks and runs the handshake
// protocol (spec.md §4.E): protocol_version, a 30ms settle delay, join,
// then poll up to 100 times 30ms apart (~3s) for the router to observe
// channel_joined and mark the handshake complete. It blocks until the
// handshake succeeds, times out, or the connection fails.
func (s *Session) Start(channelKey string) error {
	if s.state.Get() != connstate.Connected {
		return fmt.Errorf("start: session not connected (currently %s)", s.state.Get())
	}

	s.disconnectOnce = sync.Once{}
	s.queue.Reopen()
	s.ready.Clear()

	s.wg.Add(2)
	go s.senderTask()
	go s.receiverTask()

	return s.handshake(channelKey)
}

func (s *Session) handshake(channelKey string) error {
	versionFrame, err := marshalFrame(protocol.NewProtocolVersion())
	if err != nil {
		return &ProtocolErr{Op: "handshake", Err: err}
	}
	if !s.Send(versionFrame) {
		return &ProtocolErr{Op: "handshake", Err: errors.New("send protocol_version: queue closed")}
	}
	time.Sleep(handshakeStepDelay)

	joinFrame, err := marshalFrame(protocol.NewJoin(channelKey))
	if err != nil {
		return &ProtocolErr{Op: "handshake", Err: err}
	}
	if !s.Send(joinFrame) {
		return &ProtocolErr{Op: "handshake", Err: errors.New("send join: queue closed")}
	}

	for attempt := 0; attempt < handshakeMaxAttempt; attempt++ {
		if s.IsReady() {
			return nil
		}
		if s.state.Get() != connstate.Connected {
			return &ProtocolErr{Op: "handshake", Err: errors.New("connection dropped during handshake")}
		}
		time.Sleep(handshakeStepDelay)
	}

	go s.Disconnect()
	return &ProtocolErr{Op: "handshake", Err: errors.New("channel_joined not received within 3s")}
}

// Send enqueues one JSON payload (without a trailing newline) for
// transmission by the sender task. It returns false if the session is not
// connected or the queue has been closed.
func (s *Session) Send(payload []byte) bool {
	if s.state.Get() != connstate.Connected {
		return false
	}
	return s.queue.Enqueue(codec.Frame(payload))
}

// MarkHandshakeComplete flips the ready latch. Called by the router when
// it observes an inbound channel_joined frame.
func (s *Session) MarkHandshakeComplete() {
	s.ready.Set()
}

// IsReady reports whether the session is connected and has completed the
// join handshake.
func (s *Session) IsReady() bool {
	return s.state.Get() == connstate.Connected && s.ready.Get()
}

// Disconnect tears the session down exactly once: closes the send queue
// (discarding anything still queued), waits for both worker tasks to
// exit, closes the transport, and lands in Disconnected before invoking
// the registered callback.
func (s *Session) Disconnect() {
	s.disconnectOnce.Do(func() {
		s.state.Set(connstate.Disconnecting)

		if discarded := s.queue.Close(); discarded > 0 {
			s.logger.Debug("discarded queued frames on disconnect", "count", discarded)
		}
		s.wg.Wait()

		s.mu.Lock()
		tr := s.transport
		s.mu.Unlock()
		if tr != nil {
			_ = tr.Close()
		}

		s.ready.Clear()
		s.state.Set(connstate.Disconnected)

		if s.onDisconnect != nil {
			s.onDisconnect()
		}
	})
}

func (s *Session) senderTask() {
	defer s.wg.Done()

	for {
		frame, ok := s.queue.DrainOne()
		if !ok {
			return
		}

		data := codec.Encode(frame)
		if !s.writeAll(data) {
			go s.Disconnect()
			return
		}
	}
}

func (s *Session) writeAll(data []byte) bool {
	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	if tr == nil {
		return false
	}

	for len(data) > 0 {
		n, result, err := tr.Send(data)
		switch result {
		case transport.ResultOK:
			data = data[n:]
		case transport.ResultWouldBlock:
			time.Sleep(recvWouldBlockSleep)
		default:
			s.logger.Error("transport send failed", "error", errString(err))
			return false
		}
	}
	return true
}

func (s *Session) receiverTask() {
	defer s.wg.Done()

	buf := make([]byte, 4096)
	for {
		if s.state.Get() != connstate.Connected {
			return
		}

		s.mu.Lock()
		tr := s.transport
		s.mu.Unlock()
		if tr == nil {
			return
		}

		n, result, err := tr.Recv(buf)
		switch result {
		case transport.ResultOK:
			s.mu.Lock()
			frames := s.acc.Feed(buf[:n])
			s.mu.Unlock()
			for _, frame := range frames {
				s.router.Route(frame)
			}
		case transport.ResultWouldBlock:
			time.Sleep(recvWouldBlockSleep)
		case transport.ResultEOF:
			s.logger.Info("relay closed the connection")
			go s.Disconnect()
			return
		default:
			s.logger.Error("transport recv failed", "error", errString(err))
			go s.Disconnect()
			return
		}
	}
}

func marshalFrame(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
