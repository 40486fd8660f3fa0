package mcengine

import "github.com/gstoney/mcengine/packet"

// ConnID identifies a connection for the lifetime of a Server.
type ConnID uint64

// Handler receives every packet decoded in the Status, Login and Play states,
// before the connection acts on it. The Handshake packet is not delivered.
// Calls for one connection are made in arrival order from the goroutine
// reading it; a returned error closes the connection.
type Handler interface {
	HandlePacket(id ConnID, p packet.Packet) error
}

type HandlerFunc func(id ConnID, p packet.Packet) error

func (f HandlerFunc) HandlePacket(id ConnID, p packet.Packet) error {
	return f(id, p)
}

// SessionHandler may be implemented by a Handler to learn when a connection
// enters and leaves the Play state. Join runs before the first inbound Play
// packet is read, so JoinGame and friends can be queued from it.
type SessionHandler interface {
	Join(c *Conn) error
	Leave(id ConnID, err error)
}

// Inbound is a packet delivered through ChannelHandler.
type Inbound struct {
	Conn   ConnID
	Packet packet.Packet
}

// ChannelHandler forwards packets to ch. The send blocks, so a slow consumer
// stalls the reading connection rather than reordering or dropping.
func ChannelHandler(ch chan<- Inbound) Handler {
	return HandlerFunc(func(id ConnID, p packet.Packet) error {
		ch <- Inbound{Conn: id, Packet: p}
		return nil
	})
}

type nopHandler struct{}

func (nopHandler) HandlePacket(ConnID, packet.Packet) error { return nil }
