package packet

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type UUID = uuid.UUID

// Packet is implemented by every packet variant. The generic codec walks the
// schema; variants with irregular payloads also implement Encoder or Decoder.
type Packet interface {
	Kind() Kind
	Schema() Schema
}

// Encoder replaces the schema walk when encoding a variant.
type Encoder interface {
	EncodePacket(w io.Writer) error
}

// Decoder replaces the schema walk when decoding a variant.
type Decoder interface {
	DecodePacket(r *Reader) error
}

var (
	ErrMalformedPacket = errors.New("malformed packet")
	ErrTrailingData    = errors.New("trailing data after packet fields")
	ErrUnknownPacket   = errors.New("unknown packet id")
)

// MalformedPacketError reports a packet that could not be decoded, with the
// variant and field involved when known.
type MalformedPacketError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *MalformedPacketError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("malformed packet %s: field %s: %v", e.Kind, e.Field, e.Err)
	case e.Kind != KindUnknown:
		return fmt.Sprintf("malformed packet %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("malformed packet: %v", e.Err)
}

func (e *MalformedPacketError) Unwrap() []error {
	return []error{ErrMalformedPacket, e.Err}
}

// Encode writes the fields of p, without the packet id.
func Encode(w io.Writer, p Packet) error {
	if enc, ok := p.(Encoder); ok {
		if err := enc.EncodePacket(w); err != nil {
			return fmt.Errorf("encode %s: %w", p.Kind(), err)
		}
		return nil
	}
	if err := p.Schema().Encode(w); err != nil {
		return fmt.Errorf("encode %s: %w", p.Kind(), err)
	}
	return nil
}

// Decode fills p from r. Every byte of r must be consumed.
func Decode(r *Reader, p Packet) error {
	var err error
	if dec, ok := p.(Decoder); ok {
		err = dec.DecodePacket(r)
	} else {
		err = p.Schema().Decode(r)
	}

	if err == nil && r.Remaining() > 0 {
		err = fmt.Errorf("%w: %d bytes", ErrTrailingData, r.Remaining())
	}
	if err == nil {
		return nil
	}

	var mErr *MalformedPacketError
	if errors.As(err, &mErr) {
		if mErr.Kind == KindUnknown {
			mErr.Kind = p.Kind()
		}
		return mErr
	}
	return &MalformedPacketError{Kind: p.Kind(), Err: err}
}

// Marshal encodes id followed by the fields of p.
func Marshal(id int32, p Packet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteVarInt(&buf, id); err != nil {
		return nil, err
	}
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a packet body that does not include the id.
func Unmarshal(b []byte, p Packet) error {
	r := NewReader(b)
	return Decode(&r, p)
}
