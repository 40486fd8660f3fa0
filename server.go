package mcengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gstoney/mcengine/internal/logging"
	"github.com/gstoney/mcengine/internal/observability"
	"github.com/gstoney/mcengine/packet"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrServerClosed = errors.New("server closed")
	ErrNoConn       = errors.New("no such connection")
)

const (
	DefaultQueueSize   = 64
	DefaultAcceptRate  = rate.Limit(50)
	DefaultAcceptBurst = 100
	DefaultMaxPlayers  = 20
	DefaultDescription = "A Minecraft Server"
)

// A Server defines parameters for running a Minecraft server.
// The zero value serves the default registry in offline mode without
// compression.
type Server struct {
	Addr      string
	Registry  *packet.Registry // packet.Default when nil
	Handler   Handler
	Status    StatusProvider
	Login     LoginConfig
	Transport TransportConfig
	Logger    *zerolog.Logger

	AcceptRate  rate.Limit
	AcceptBurst int
	QueueSize   int

	initOnce sync.Once
	reg      *packet.Registry
	handler  Handler
	status   StatusProvider
	log      zerolog.Logger

	keysOnce sync.Once
	keys     *KeyPair
	keysErr  error

	nextID atomic.Uint64
	closed atomic.Bool

	mu        sync.RWMutex
	conns     map[ConnID]*Conn
	listeners map[net.Listener]struct{}
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		s.reg = s.Registry
		if s.reg == nil {
			s.reg = packet.Default
		}
		s.handler = s.Handler
		if s.handler == nil {
			s.handler = nopHandler{}
		}
		s.status = s.Status
		if s.status == nil {
			s.status = StaticStatus{Description: DefaultDescription, MaxPlayers: DefaultMaxPlayers}
		}
		if s.Logger != nil {
			s.log = *s.Logger
		} else {
			s.log = logging.Component("server")
		}
		s.conns = make(map[ConnID]*Conn)
		s.listeners = make(map[net.Listener]struct{})
		observability.RegisterMetrics()
	})
}

func (s *Server) keyPair() (*KeyPair, error) {
	if s.Login.Keys != nil {
		return s.Login.Keys, nil
	}
	s.keysOnce.Do(func() {
		s.keys, s.keysErr = GenerateKeyPair()
	})
	return s.keys, s.keysErr
}

// ListenAndServe listens on the TCP address s.Addr and then calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.Addr
	if addr == "" {
		addr = ":25565"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts incoming connections on the Listener l,
// creating a new goroutine for each. It returns when ctx is done or Close is
// called; l is closed either way.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.init()
	if s.closed.Load() {
		l.Close()
		return ErrServerClosed
	}

	s.mu.Lock()
	s.listeners[l] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.listeners, l)
		s.mu.Unlock()
		l.Close()
	}()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	limit, burst := s.AcceptRate, s.AcceptBurst
	if limit == 0 {
		limit = DefaultAcceptRate
	}
	if burst <= 0 {
		burst = DefaultAcceptBurst
	}
	limiter := rate.NewLimiter(limit, burst)

	s.log.Info().Str("addr", l.Addr().String()).Msg("listening")

	var backoff time.Duration
	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		nc, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		go s.ServeConn(ctx, nc)
	}
}

// ServeConn runs one connection to completion and returns why it ended. A
// peer that simply hangs up, or a close requested through ctx or Close, is
// not an error.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) error {
	s.init()
	c := s.newConn(nc)

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		nc.Close()
		return ErrServerClosed
	}
	s.conns[c.id] = c
	s.mu.Unlock()

	observability.RecordAccept()
	c.log.Debug().Msg("connection accepted")

	err := c.serve(ctx)

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()

	err = s.terminalError(c, err)
	state := c.State()
	observability.RecordClose(state.String(), closeReason(err))

	if err != nil {
		ev := c.log.Warn().Err(err)
		var mErr *packet.MalformedPacketError
		if errors.As(err, &mErr) {
			ev = ev.Stringer("kind", mErr.Kind).Str("field", mErr.Field)
		}
		ev.Msg("connection closed")
	} else {
		c.log.Debug().Msg("connection closed")
	}
	return err
}

func (s *Server) newConn(nc net.Conn) *Conn {
	id := ConnID(s.nextID.Add(1))

	queue := s.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}

	c := &Conn{
		id:   id,
		srv:  s,
		nc:   nc,
		tr:   NewTransport(nc, nc, s.Transport),
		reg:  s.reg,
		out:  make(chan packet.Packet, queue),
		done: make(chan struct{}),
	}
	c.log = s.log.With().
		Uint64("conn", uint64(id)).
		Str("remote", nc.RemoteAddr().String()).
		Stringer("state", packet.Handshake).
		Logger()
	c.touch()
	return c
}

func (s *Server) terminalError(c *Conn, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return nil
	case c.closed() && (errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)):
		return nil
	}
	return err
}

func closeReason(err error) string {
	switch {
	case err == nil:
		return "eof"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, packet.ErrMalformedPacket):
		return "malformed"
	case errors.Is(err, context.Canceled):
		return "shutdown"
	}
	return "io"
}

func versionName(protocol int32) string {
	if name, ok := packet.VersionNames[protocol]; ok {
		return name
	}
	return "protocol " + strconv.Itoa(int(protocol))
}

func (s *Server) statusDocument(protocol int32) StatusDocument {
	s.init()

	players := s.Conns()
	sample := make([]PlayerSample, 0, min(len(players), maxStatusSample))
	for _, c := range players {
		if len(sample) == maxStatusSample {
			break
		}
		sample = append(sample, PlayerSample{Name: c.Name(), ID: c.UUID().String()})
	}

	doc := s.status.Status(StatusInfo{
		Protocol: protocol,
		Online:   len(players),
		Sample:   sample,
	})

	if doc.Version.Name == "" {
		if !s.reg.Supports(protocol) {
			protocol = s.reg.Canonical()
		}
		doc.Version = StatusVersion{Name: versionName(protocol), Protocol: protocol}
	}
	return doc
}

// Conn returns the connection with the given id, in any state.
func (s *Server) Conn(id ConnID) (*Conn, bool) {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[id]
	return c, ok
}

// Conns lists the connections in the Play state.
func (s *Server) Conns() []*Conn {
	s.init()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		if c.State() == packet.Play {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) PlayerCount() int {
	return len(s.Conns())
}

// Send queues p for the connection id.
func (s *Server) Send(id ConnID, p packet.Packet) error {
	c, ok := s.Conn(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoConn, id)
	}
	return c.Send(p)
}

// Broadcast queues p for every connection in the Play state and returns how
// many accepted it. Connections whose queue is full are skipped.
func (s *Server) Broadcast(p packet.Packet) int {
	n := 0
	for _, c := range s.Conns() {
		if c.Send(p) == nil {
			n++
		}
	}
	return n
}

// Close stops every listener and closes every connection.
func (s *Server) Close() error {
	s.init()
	s.closed.Store(true)

	s.mu.Lock()
	var errs []error
	for l := range s.listeners {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	conns := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return errors.Join(errs...)
}
