package session

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vizdbg/bridge/internal/observability"
	"github.com/vizdbg/bridge/internal/protocol"
	"github.com/vizdbg/bridge/internal/wire"
)

// drainPollTimeout approximates the "buffered bytes still pending" probe
// while the read pump drains: long enough to see bytes already in the kernel
// buffer, short enough not to stall the tick.
const drainPollTimeout = 5 * time.Millisecond

var (
	ErrAlreadyStarted = errors.New("session: already started")
	ErrNotConnected   = errors.New("session: not connected")
	ErrClosed         = errors.New("session: closed")
	ErrAcceptTimeout  = errors.New("session: viewer did not connect")
)

// State is the session lifecycle position. Closed is terminal.
type State int

const (
	StateDisconnected State = iota
	StateListening
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PlotCallback is invoked once per drained plot request with the requested
// variable name. It runs outside the session mutex and may call back into
// the session.
type PlotCallback func(variableName string)

// Session owns one socket connection to the viewer and the receive queue
// table behind it. Every public operation serializes on one mutex: at most
// one goroutine is inside the socket/queue state at a time.
type Session struct {
	mu           sync.Mutex
	cfg          Config
	log          zerolog.Logger
	plotCallback PlotCallback

	state  State
	ln     *net.TCPListener
	conn   net.Conn
	dec    *wire.Decoder
	queues *queueTable
	viewer *viewerProc
}

// New constructs an unconnected session. The logger is injected here and
// used for every session log line; there is no hidden global.
func New(cfg Config, logger zerolog.Logger, cb PlotCallback) *Session {
	return &Session{
		cfg:          cfg.withDefaults(),
		log:          logger,
		plotCallback: cb,
		state:        StateDisconnected,
	}
}

// Start binds the local server socket, launches the viewer (unless
// development mode or an empty viewer path disables the spawn), and blocks
// until the viewer connects or the accept timeout expires.
func (s *Session) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.WaitForViewer()
}

// Listen binds the local server socket and launches the viewer process with
// the bound port on its command line. The session is Listening afterwards;
// WaitForViewer completes the connection.
func (s *Session) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateDisconnected:
	default:
		return ErrAlreadyStarted
	}

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(s.cfg.Port)}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.log.Error().Err(err).Msg("could not start TCP server")
		return fmt.Errorf("session: listen: %w", err)
	}
	s.ln = ln
	s.state = StateListening
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	s.log.Info().Uint16("port", port).Msg("waiting for viewer connection")

	if !s.cfg.Development && s.cfg.ViewerPath != "" {
		viewer, err := launchViewer(s.cfg.ViewerPath, port, s.cfg.LogFilePath)
		if err != nil {
			ln.Close()
			s.ln = nil
			s.state = StateDisconnected
			return err
		}
		s.viewer = viewer
		s.log.Info().Str("viewer", s.cfg.ViewerPath).Msg("viewer app started")
	}
	return nil
}

// WaitForViewer blocks until the viewer's connection is accepted or the
// accept timeout expires. On timeout the session drops back to Disconnected.
// The mutex is released for the duration of the accept so the read-only
// surface (Port, State, IsWindowReady) stays responsive while waiting.
func (s *Session) WaitForViewer() error {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return ErrNotConnected
	}
	ln := s.ln
	s.mu.Unlock()

	ln.SetDeadline(time.Now().Add(s.cfg.AcceptTimeout))
	conn, err := ln.AcceptTCP()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateListening {
		// Closed while waiting.
		if conn != nil {
			conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		s.log.Error().Err(err).Msg("no viewer connected to bridge server")
		ln.Close()
		s.ln = nil
		s.state = StateDisconnected
		return ErrAcceptTimeout
	}
	// Single-client protocol: stop listening once the viewer is attached.
	ln.Close()
	s.ln = nil

	s.conn = conn
	s.dec = wire.NewDecoder(conn)
	s.queues = newQueueTable()
	s.state = StateConnected
	s.log.Info().Msg("viewer connected to bridge server")
	return nil
}

// Port returns the bound listen port, or 0 before Start.
func (s *Session) Port() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return uint16(s.ln.Addr().(*net.TCPAddr).Port)
	}
	if conn, ok := s.conn.(*net.TCPConn); ok && conn != nil {
		return uint16(conn.LocalAddr().(*net.TCPAddr).Port)
	}
	return 0
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsWindowReady reports whether the viewer is connected and (when spawned by
// the bridge) still running.
func (s *Session) IsWindowReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return false
	}
	if s.viewer != nil && !s.viewer.isRunning() {
		return false
	}
	return true
}

// RequestObservedSymbols sends the fire-and-forget request asking the viewer
// which buffers it currently shows. The answer arrives as a
// GetObservedSymbolsResponse on the receive queues.
func (s *Session) RequestObservedSymbols() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	return s.sendRequestObservedSymbols()
}

// GetObservedSymbols sends the request and blocks for the matching response,
// returning nil symbols if none arrives within the fetch timeout.
func (s *Session) GetObservedSymbols() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if err := s.sendRequestObservedSymbols(); err != nil {
		return nil, err
	}
	msg := s.fetch(protocol.GetObservedSymbolsResponse)
	if msg == nil {
		return nil, nil
	}
	resp := msg.(protocol.ObservedSymbolsResponse)
	s.log.Info().Strs("symbols", resp.Symbols).Msg("received observed symbols")
	return resp.Symbols, nil
}

// SetAvailableSymbols announces the current set of inspectable symbols to
// the viewer.
func (s *Session) SetAvailableSymbols(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	composer := wire.NewComposer(s.conn)
	protocol.EncodeAvailableSymbols(composer, protocol.AvailableSymbols{Symbols: symbols})
	if err := composer.Send(); err != nil {
		return err
	}
	observability.RecordFrameSent(protocol.SetAvailableSymbols.String())
	s.log.Info().Strs("symbols", symbols).Msg("sent available symbols")
	return nil
}

// PlotBuffer sends one buffer payload. The payload is validated before any
// byte reaches the wire; a rejected payload transmits nothing. payload.Data
// is borrowed only until PlotBuffer returns.
func (s *Session) PlotBuffer(payload protocol.BufferPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected(); err != nil {
		return err
	}
	composer := wire.NewComposer(s.conn)
	if err := protocol.EncodeBufferContents(composer, protocol.BufferContents{Buffer: payload}); err != nil {
		s.log.Error().Err(err).Str("variable", payload.VariableName).Msg("rejected buffer payload")
		return err
	}
	if err := composer.Send(); err != nil {
		return err
	}
	observability.RecordFrameSent(protocol.PlotBufferContents.String())
	s.log.Info().Str("variable", payload.VariableName).Str("display", payload.DisplayName).Msg("sent symbol data")
	return nil
}

// Fetch returns the oldest queued message of the kind. If the queue is
// empty it runs the read pump once, bounded by the fetch timeout, and
// retries the lookup exactly once more. Nil means nothing arrived.
func (s *Session) Fetch(kind protocol.MessageKind) protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireConnected() != nil {
		return nil
	}
	return s.fetch(kind)
}

// RunEventLoop services the connection once: it runs the read pump with the
// short tick timeout, then drains the plot request queue oldest-first,
// invoking the plot callback per request. Transport stalls and mid-session
// socket errors surface as "nothing this tick", never as errors; callers
// poll IsWindowReady separately for liveness.
func (s *Session) RunEventLoop() {
	s.mu.Lock()
	if s.requireConnected() != nil {
		s.mu.Unlock()
		return
	}
	s.readPump(s.cfg.TickTimeout)

	var requests []string
	for {
		msg := s.queues.pop(protocol.PlotBufferRequest)
		if msg == nil {
			break
		}
		requests = append(requests, msg.(protocol.PlotRequest).VariableName)
	}
	cb := s.plotCallback
	s.mu.Unlock()

	// The callback may re-enter the session (typically via PlotBuffer), so
	// it runs outside the mutex.
	if cb == nil {
		return
	}
	for _, name := range requests {
		cb(name)
	}
}

// LogMessage writes a host-supplied message through the session logger,
// mapping the foreign level names onto zerolog levels.
func (s *Session) LogMessage(level, message string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		s.log.Trace().Msg(message)
	case "debug":
		s.log.Debug().Msg(message)
	case "warning", "warn":
		s.log.Warn().Msg(message)
	case "error":
		s.log.Error().Msg(message)
	case "critical":
		s.log.Error().Str("severity", "critical").Msg(message)
	default:
		s.log.Info().Msg(message)
	}
}

// Close tears the session down: the viewer process is killed, the socket and
// listener are closed, and all queued state is discarded. Closed is
// terminal.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.viewer.kill()
	s.viewer = nil
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.ln != nil {
		s.ln.Close()
		s.ln = nil
	}
	s.dec = nil
	s.queues = nil
	s.state = StateClosed
	s.log.Info().Msg("bridge session closed")
	return nil
}

func (s *Session) requireConnected() error {
	switch s.state {
	case StateConnected:
		return nil
	case StateClosed:
		s.log.Error().Msg("operation on closed bridge session")
		return ErrClosed
	default:
		s.log.Error().Stringer("state", s.state).Msg("operation on unconnected bridge session")
		return ErrNotConnected
	}
}

func (s *Session) sendRequestObservedSymbols() error {
	composer := wire.NewComposer(s.conn)
	protocol.EncodeObservedSymbolsRequest(composer)
	if err := composer.Send(); err != nil {
		return err
	}
	observability.RecordFrameSent(protocol.GetObservedSymbols.String())
	s.log.Info().Msg("sent request to provide observed symbols")
	return nil
}

// fetch pops the oldest message of the kind, pumping once on a miss. Caller
// holds the mutex.
func (s *Session) fetch(kind protocol.MessageKind) protocol.Message {
	if msg := s.queues.pop(kind); msg != nil {
		return msg
	}
	s.readPump(s.cfg.FetchTimeout)
	return s.queues.pop(kind)
}

// readPump drains whatever the socket already holds into the receive
// queues. Only the initial wait may block for new data, bounded by wait;
// once a kind discriminant has been consumed the rest of that message is
// committed and read to completion. Socket errors degrade to "no message
// this tick": a dead peer looks like silence, not a fault. Caller holds the
// mutex.
func (s *Session) readPump(wait time.Duration) {
	timeout := wait
	for {
		var rawKind uint32
		ok, err := s.dec.PollUint32(&rawKind, timeout)
		if err != nil {
			s.log.Debug().Err(err).Msg("read pump: socket unavailable")
			return
		}
		if !ok {
			return
		}
		timeout = drainPollTimeout

		kind := protocol.MessageKind(rawKind)
		if !kind.Valid() {
			// Nothing after this point can be trusted; the stream has no
			// resync marker.
			s.log.Error().Uint32("kind", rawKind).Msg("received message with incorrect header")
			return
		}

		msg, err := protocol.DecodeBody(kind, s.dec)
		if err != nil {
			s.log.Error().Err(err).Stringer("kind", kind).Msg("failed to decode message body")
			return
		}
		observability.RecordFrameReceived(kind.String())
		s.log.Debug().Stringer("kind", kind).Msg("queued incoming message")
		s.queues.push(msg)
	}
}
