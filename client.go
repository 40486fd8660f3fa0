package mcengine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gstoney/mcengine/packet"
)

// Client speaks the client side of the protocol. It backs the status command
// and exercises the server end to end in tests.
type Client struct {
	nc       net.Conn
	tr       *Transport
	reg      *packet.Registry
	protocol int32
	state    packet.State
}

func NewClient(nc net.Conn, protocol int32, reg *packet.Registry) *Client {
	if reg == nil {
		reg = packet.Default
	}
	return &Client{
		nc:       nc,
		tr:       NewTransport(nc, nc, DefaultTransportConfig()),
		reg:      reg,
		protocol: protocol,
		state:    packet.Handshake,
	}
}

func (c *Client) Transport() *Transport { return c.tr }
func (c *Client) State() packet.State    { return c.state }

// SetState moves the client's table selection to s without any exchange.
func (c *Client) SetState(s packet.State) { c.state = s }

func (c *Client) Close() error { return c.nc.Close() }

func (c *Client) WritePacket(p packet.Packet) error {
	b, err := encodePacket(c.reg, tableKey(c.reg, c.state, c.protocol, packet.Serverbound), p)
	if err != nil {
		return err
	}
	return c.tr.Send(b)
}

func (c *Client) ReadPacket() (packet.Packet, error) {
	body, err := c.tr.ReadPacket()
	if err != nil {
		return nil, err
	}
	return decodePacket(c.reg, tableKey(c.reg, c.state, c.protocol, packet.Clientbound), body)
}

// Handshake sends the Handshake packet and switches to the state it requests.
func (c *Client) Handshake(host string, port uint16, next int32) error {
	err := c.WritePacket(&packet.HandshakePacket{
		ProtocolVersion: c.protocol,
		ServerAddr:      host,
		ServerPort:      port,
		NextState:       next,
	})
	if err != nil {
		return err
	}
	if next == packet.NextStatus {
		c.state = packet.Status
	} else {
		c.state = packet.Login
	}
	return nil
}

// Status runs the Request/Ping exchange and reports the round trip of the
// ping.
func (c *Client) Status() (StatusDocument, time.Duration, error) {
	if err := c.WritePacket(&packet.StatusRequest{}); err != nil {
		return StatusDocument{}, 0, err
	}
	p, err := c.ReadPacket()
	if err != nil {
		return StatusDocument{}, 0, err
	}
	resp, ok := p.(*packet.StatusResponse)
	if !ok {
		return StatusDocument{}, 0, unexpected(p)
	}
	doc, err := ParseStatusDocument(resp.Response)
	if err != nil {
		return StatusDocument{}, 0, fmt.Errorf("parse status: %w", err)
	}

	start := time.Now()
	payload := start.UnixMilli()
	if err := c.WritePacket(&packet.StatusPing{Payload: payload}); err != nil {
		return doc, 0, err
	}
	p, err = c.ReadPacket()
	if err != nil {
		return doc, 0, err
	}
	pong, ok := p.(*packet.StatusPong)
	if !ok {
		return doc, 0, unexpected(p)
	}
	if pong.Payload != payload {
		return doc, 0, fmt.Errorf("pong payload %d, sent %d", pong.Payload, payload)
	}
	return doc, time.Since(start), nil
}

// Login runs the Login state as an offline-mode client, answering an
// encryption request and applying SetCompression when the server sends them.
func (c *Client) Login(name string) (*packet.LoginSuccess, error) {
	if err := c.WritePacket(&packet.LoginStart{Name: name}); err != nil {
		return nil, err
	}

	for {
		p, err := c.ReadPacket()
		if err != nil {
			return nil, err
		}

		switch p := p.(type) {
		case *packet.EncryptionRequest:
			if err := c.answerEncryption(p); err != nil {
				return nil, err
			}
		case *packet.SetCompression:
			c.tr.SetCompression(int(p.Threshold))
		case *packet.LoginSuccess:
			c.state = packet.Play
			return p, nil
		case *packet.LoginDisconnect:
			return nil, fmt.Errorf("disconnected: %s", p.Reason)
		default:
			return nil, unexpected(p)
		}
	}
}

func (c *Client) answerEncryption(req *packet.EncryptionRequest) error {
	secret := make([]byte, SharedSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	encSecret, err := EncryptFor(req.PublicKey, secret)
	if err != nil {
		return err
	}
	encToken, err := EncryptFor(req.PublicKey, req.VerifyToken)
	if err != nil {
		return err
	}

	err = c.WritePacket(&packet.EncryptionResponse{SharedSecret: encSecret, VerifyToken: encToken})
	if err != nil {
		return err
	}
	return c.tr.EnableEncryption(secret)
}

// QueryStatus dials addr and returns its status document and ping latency.
func QueryStatus(ctx context.Context, addr string, protocol int32) (StatusDocument, time.Duration, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return StatusDocument{}, 0, err
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return StatusDocument{}, 0, err
	}
	defer nc.Close()
	if deadline, ok := ctx.Deadline(); ok {
		nc.SetDeadline(deadline)
	}

	c := NewClient(nc, protocol, nil)
	if err := c.Handshake(host, port, packet.NextStatus); err != nil {
		return StatusDocument{}, 0, err
	}
	return c.Status()
}

// QueryLegacyStatus sends a 1.4-1.6 style ping and returns the fields of the
// reply: protocol, version, description, online and max.
func QueryLegacyStatus(ctx context.Context, addr string) ([]string, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer nc.Close()
	if deadline, ok := ctx.Deadline(); ok {
		nc.SetDeadline(deadline)
	}

	if _, err := nc.Write([]byte{legacyPingID, 0x01}); err != nil {
		return nil, err
	}
	reply, err := io.ReadAll(nc)
	if err != nil {
		return nil, err
	}
	return parseLegacyPing(reply)
}

var errBadLegacyReply = errors.New("malformed legacy ping reply")

func parseLegacyPing(b []byte) ([]string, error) {
	text, ok := decodeLegacyPing(b)
	if !ok {
		return nil, errBadLegacyReply
	}
	if fields := strings.Split(text, "\x00"); len(fields) == 6 && fields[0] == "§1" {
		return fields[1:], nil
	}
	if fields := strings.Split(text, "§"); len(fields) == 3 {
		return []string{"", "", fields[0], fields[1], fields[2]}, nil
	}
	return nil, errBadLegacyReply
}

func splitHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("port %q: %w", portStr, err)
	}
	return host, uint16(port), nil
}
