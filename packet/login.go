package packet

type LoginStart struct {
	Name string
}

func (p *LoginStart) Kind() Kind { return KindLoginStart }

func (p *LoginStart) Schema() Schema {
	return Schema{
		Bind("username", &p.Name, StringCodec),
	}
}

type EncryptionResponse struct {
	SharedSecret []byte
	VerifyToken  []byte
}

func (p *EncryptionResponse) Kind() Kind { return KindEncryptionResponse }

func (p *EncryptionResponse) Schema() Schema {
	return Schema{
		Bind("secret", &p.SharedSecret, ByteArrayCodec),
		Bind("token", &p.VerifyToken, ByteArrayCodec),
	}
}

// LoginPluginResponse carries Data only when Successful is set.
type LoginPluginResponse struct {
	MessageID  int32
	Successful bool
	Data       []byte
}

func (p *LoginPluginResponse) Kind() Kind { return KindLoginPluginResponse }

func (p *LoginPluginResponse) Schema() Schema {
	return Schema{
		Bind("message_id", &p.MessageID, VarIntCodec),
		Bind("successful", &p.Successful, BooleanCodec),
		Bind("data", &p.Data, RestBytesCodec).If(func() bool { return p.Successful }),
	}
}

type LoginDisconnect struct {
	Reason string // JSON Text Component
}

func (p *LoginDisconnect) Kind() Kind { return KindLoginDisconnect }

func (p *LoginDisconnect) Schema() Schema {
	return Schema{
		Bind("reason", &p.Reason, ChatCodec),
	}
}

type EncryptionRequest struct {
	ServerID    string
	PublicKey   []byte
	VerifyToken []byte
}

func (p *EncryptionRequest) Kind() Kind { return KindEncryptionRequest }

func (p *EncryptionRequest) Schema() Schema {
	return Schema{
		Bind("server_id", &p.ServerID, StringCodec),
		Bind("pubkey", &p.PublicKey, ByteArrayCodec),
		Bind("verify_token", &p.VerifyToken, ByteArrayCodec),
	}
}

type LoginSuccess struct {
	UUID     UUID
	Username string
}

func (p *LoginSuccess) Kind() Kind { return KindLoginSuccess }

func (p *LoginSuccess) Schema() Schema {
	return Schema{
		Bind("uuid", &p.UUID, UUIDStringCodec),
		Bind("username", &p.Username, StringCodec),
	}
}

type SetCompression struct {
	Threshold int32
}

func (p *SetCompression) Kind() Kind { return KindSetCompression }

func (p *SetCompression) Schema() Schema {
	return Schema{
		Bind("threshold", &p.Threshold, VarIntCodec),
	}
}

type LoginPluginRequest struct {
	MessageID int32
	Channel   string
	Data      []byte
}

func (p *LoginPluginRequest) Kind() Kind { return KindLoginPluginRequest }

func (p *LoginPluginRequest) Schema() Schema {
	return Schema{
		Bind("message_id", &p.MessageID, VarIntCodec),
		Bind("channel", &p.Channel, IdentifierCodec),
		Bind("data", &p.Data, RestBytesCodec),
	}
}
