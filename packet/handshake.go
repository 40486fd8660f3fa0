package packet

// Values of HandshakePacket.NextState.
const (
	NextStatus int32 = 1
	NextLogin  int32 = 2
)

type HandshakePacket struct {
	ProtocolVersion int32
	ServerAddr      string
	ServerPort      uint16
	NextState       int32
}

func (p *HandshakePacket) Kind() Kind { return KindHandshake }

func (p *HandshakePacket) Schema() Schema {
	return Schema{
		Bind("protocol_version", &p.ProtocolVersion, VarIntCodec),
		Bind("server_address", &p.ServerAddr, StringCodec),
		Bind("server_port", &p.ServerPort, UnsignedShortCodec),
		Bind("next_state", &p.NextState, VarIntCodec),
	}
}
