package mcengine

import (
	"compress/flate"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gstoney/mcengine/internal/observability"
	"github.com/gstoney/mcengine/packet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrUnexpectedPacket   = errors.New("unexpected packet for connection state")
	ErrInvalidNextState   = errors.New("invalid handshake next state")
	ErrSlowConsumer       = errors.New("outbound queue full")
	ErrConnClosed         = errors.New("connection closed")
	ErrNotPlaying         = errors.New("connection is not in the play state")
)

// Conn is one client connection. Its state only moves forward:
// Handshake, then Status or Login, then Play.
type Conn struct {
	id  ConnID
	srv *Server
	nc  net.Conn
	tr  *Transport
	reg *packet.Registry
	log zerolog.Logger

	state    atomic.Uint32
	protocol atomic.Int32

	// set before the Play state and read-only afterwards
	serverAddr string
	serverPort uint16
	name       string
	uuid       uuid.UUID

	out          chan packet.Packet
	lastActivity atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func (c *Conn) ID() ConnID           { return c.id }
func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }
func (c *Conn) Protocol() int32      { return c.protocol.Load() }
func (c *Conn) Name() string         { return c.name }
func (c *Conn) UUID() uuid.UUID      { return c.uuid }

// ServerAddr is the host and port the client says it dialed.
func (c *Conn) ServerAddr() (string, uint16) { return c.serverAddr, c.serverPort }

func (c *Conn) State() packet.State {
	return packet.State(c.state.Load())
}

func (c *Conn) setState(s packet.State) {
	c.log = c.log.With().Stringer("state", s).Logger()
	c.state.Store(uint32(s))
}

// LastActivity is the time the last frame arrived from the client.
func (c *Conn) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *Conn) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() error {
	err := ErrConnClosed
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.nc.Close()
	})
	return err
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// key selects the id table for dir. Handshake and Status are served from the
// canonical protocol, as is Login for a client whose version is unsupported,
// so it can still be told why it is being turned away.
func (c *Conn) key(dir packet.Direction) packet.Key {
	return tableKey(c.reg, c.State(), c.Protocol(), dir)
}

func tableKey(reg *packet.Registry, state packet.State, protocol int32, dir packet.Direction) packet.Key {
	if state == packet.Handshake || state == packet.Status || !reg.Supports(protocol) {
		protocol = reg.Canonical()
	}
	return packet.Key{Protocol: protocol, State: state, Direction: dir}
}

func encodePacket(reg *packet.Registry, key packet.Key, p packet.Packet) ([]byte, error) {
	id, ok := reg.ID(key, p.Kind())
	if !ok {
		return nil, fmt.Errorf("%w: %s has no id in %s", packet.ErrUnknownPacket, p.Kind(), key)
	}
	return packet.Marshal(id, p)
}

func decodePacket(reg *packet.Registry, key packet.Key, body []byte) (packet.Packet, error) {
	id, rest, err := packet.DecodeVarInt(body)
	if err != nil {
		return nil, &packet.MalformedPacketError{Field: "packet_id", Err: err}
	}
	p, err := reg.New(key, id)
	if err != nil {
		return nil, err
	}
	if err := packet.Unmarshal(rest, p); err != nil {
		return nil, err
	}
	return p, nil
}

// isFramingError reports errors that mean the peer sent a bad frame, as
// opposed to the stream failing.
func isFramingError(err error) bool {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, ErrInvalidFrameLength),
		errors.Is(err, ErrInvalidDataLength),
		errors.Is(err, ErrPacketTooBig),
		errors.Is(err, ErrZlibPayloadOverrun),
		errors.Is(err, ErrZlibPayloadUnderrun),
		errors.Is(err, ErrZlibTrailingData),
		errors.Is(err, packet.ErrOverflow),
		errors.Is(err, zlib.ErrHeader),
		errors.Is(err, zlib.ErrChecksum),
		errors.Is(err, zlib.ErrDictionary),
		errors.As(err, &corrupt):
		return true
	}
	return false
}

func (c *Conn) readPacket() (packet.Packet, error) {
	body, err := c.tr.ReadPacket()
	if err != nil {
		if isFramingError(err) {
			return nil, &packet.MalformedPacketError{Err: err}
		}
		return nil, err
	}
	c.touch()

	key := c.key(packet.Serverbound)
	p, err := decodePacket(c.reg, key, body)
	if err != nil {
		return nil, err
	}

	observability.RecordPacket("in", key.State.String(), p.Kind().String())
	c.log.Trace().Stringer("kind", p.Kind()).Int("len", len(body)).Msg("recv")

	if key.State != packet.Handshake {
		if err := c.srv.handler.HandlePacket(c.id, p); err != nil {
			return nil, fmt.Errorf("handle %s: %w", p.Kind(), err)
		}
	}
	return p, nil
}

// WritePacket encodes and sends p immediately, bypassing the outbound queue.
func (c *Conn) WritePacket(p packet.Packet) error {
	key := c.key(packet.Clientbound)
	b, err := encodePacket(c.reg, key, p)
	if err != nil {
		return err
	}
	if err := c.tr.Send(b); err != nil {
		return fmt.Errorf("send %s: %w", p.Kind(), err)
	}

	observability.RecordPacket("out", key.State.String(), p.Kind().String())
	c.log.Trace().Stringer("kind", p.Kind()).Int("len", len(b)).Msg("send")
	return nil
}

// Send queues p for the connection's writer. It never blocks; a full queue
// returns ErrSlowConsumer and drops p.
func (c *Conn) Send(p packet.Packet) error {
	if c.State() != packet.Play {
		return ErrNotPlaying
	}
	if c.closed() {
		return ErrConnClosed
	}

	select {
	case c.out <- p:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		observability.RecordSlowConsumer()
		c.log.Warn().Stringer("kind", p.Kind()).Msg("outbound queue full")
		return ErrSlowConsumer
	}
}

func unexpected(p packet.Packet) error {
	return &packet.MalformedPacketError{Kind: p.Kind(), Err: ErrUnexpectedPacket}
}

func (c *Conn) serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()
	defer c.Close()

	legacy, err := c.sniffLegacyPing()
	if err != nil {
		return err
	}
	if legacy != notLegacy {
		return c.serveLegacyPing(legacy)
	}

	if err := c.handshake(); err != nil {
		return err
	}

	if c.State() == packet.Status {
		return c.serveStatus()
	}

	if err := c.login(); err != nil {
		return err
	}
	return c.play(ctx)
}

func (c *Conn) handshake() error {
	p, err := c.readPacket()
	if err != nil {
		return err
	}
	hs, ok := p.(*packet.HandshakePacket)
	if !ok {
		return unexpected(p)
	}

	c.protocol.Store(hs.ProtocolVersion)
	c.serverAddr = hs.ServerAddr
	c.serverPort = hs.ServerPort
	c.log = c.log.With().Int32("protocol", hs.ProtocolVersion).Logger()

	switch hs.NextState {
	case packet.NextStatus:
		c.setState(packet.Status)
	case packet.NextLogin:
		c.setState(packet.Login)
	default:
		return &packet.MalformedPacketError{
			Kind:  packet.KindHandshake,
			Field: "next_state",
			Err:   fmt.Errorf("%w: %d", ErrInvalidNextState, hs.NextState),
		}
	}
	return nil
}

// serveStatus answers one Request and then a Ping, after which the connection
// is closed.
func (c *Conn) serveStatus() error {
	answered := false
	for {
		p, err := c.readPacket()
		if err != nil {
			return err
		}

		switch p := p.(type) {
		case *packet.StatusRequest:
			if answered {
				return unexpected(p)
			}
			answered = true

			doc, err := c.srv.statusDocument(c.Protocol()).Marshal()
			if err != nil {
				return err
			}
			if err := c.WritePacket(&packet.StatusResponse{Response: doc}); err != nil {
				return err
			}
		case *packet.StatusPing:
			return c.WritePacket(&packet.StatusPong{Payload: p.Payload})
		default:
			return unexpected(p)
		}
	}
}

func (c *Conn) play(ctx context.Context) error {
	observability.RecordJoin()
	defer observability.RecordLeave()
	c.log.Info().Str("player", c.name).Str("uuid", c.uuid.String()).Msg("player joined")

	sh, _ := c.srv.handler.(SessionHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.writeLoop(gctx)
	})
	g.Go(func() error {
		defer c.Close()
		if sh != nil {
			if err := sh.Join(c); err != nil {
				return fmt.Errorf("join: %w", err)
			}
		}
		return c.readLoop()
	})

	err := g.Wait()
	if sh != nil {
		sh.Leave(c.id, err)
	}
	return err
}

// readLoop drives the handler; readPacket dispatches each packet it decodes.
func (c *Conn) readLoop() error {
	for {
		if _, err := c.readPacket(); err != nil {
			return err
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case p := <-c.out:
			if err := c.WritePacket(p); err != nil {
				if c.closed() {
					return nil
				}
				c.Close()
				return err
			}
		}
	}
}
