package packet

type StatusRequest struct{}

func (p *StatusRequest) Kind() Kind     { return KindStatusRequest }
func (p *StatusRequest) Schema() Schema { return nil }

// StatusResponse carries the JSON status document.
type StatusResponse struct {
	Response string
}

func (p *StatusResponse) Kind() Kind { return KindStatusResponse }

func (p *StatusResponse) Schema() Schema {
	return Schema{
		Bind("json", &p.Response, StringCodec),
	}
}

type StatusPing struct {
	Payload int64
}

func (p *StatusPing) Kind() Kind { return KindStatusPing }

func (p *StatusPing) Schema() Schema {
	return Schema{
		Bind("payload", &p.Payload, LongCodec),
	}
}

type StatusPong struct {
	Payload int64
}

func (p *StatusPong) Kind() Kind { return KindStatusPong }

func (p *StatusPong) Schema() Schema {
	return Schema{
		Bind("payload", &p.Payload, LongCodec),
	}
}
