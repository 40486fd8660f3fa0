package packet

import (
	"fmt"
	"io"
)

// Codec pairs a field encoder with its decoder. Tag names the wire type in
// diagnostics.
type Codec[T any] struct {
	Tag   string
	Write WriteFn[T]
	Read  ReadFn[T]
}

var (
	BooleanCodec        = Codec[bool]{"Boolean", WriteBoolean, ReadBoolean}
	ByteCodec           = Codec[int8]{"Byte", WriteByte, ReadByte}
	UnsignedByteCodec   = Codec[byte]{"UnsignedByte", WriteUnsignedByte, ReadUnsignedByte}
	ShortCodec          = Codec[int16]{"Short", WriteShort, ReadShort}
	UnsignedShortCodec  = Codec[uint16]{"UnsignedShort", WriteUnsignedShort, ReadUnsignedShort}
	IntCodec            = Codec[int32]{"Int", WriteInt, ReadInt}
	LongCodec           = Codec[int64]{"Long", WriteLong, ReadLong}
	FloatCodec          = Codec[float32]{"Float", WriteFloat, ReadFloat}
	DoubleCodec         = Codec[float64]{"Double", WriteDouble, ReadDouble}
	VarIntCodec         = Codec[int32]{"VarInt", WriteVarInt, readVarInt}
	VarLongCodec        = Codec[int64]{"VarLong", WriteVarLong, readVarLong}
	StringCodec         = Codec[string]{"String", WriteString, ReadString}
	IdentifierCodec     = Codec[string]{"Identifier", WriteString, ReadString}
	ChatCodec           = Codec[string]{"Chat", WriteString, ReadString}
	UUIDCodec           = Codec[UUID]{"UUID", WriteUUID, ReadUUID}
	UUIDStringCodec     = Codec[UUID]{"UUIDString", WriteUUIDString, ReadUUIDString}
	PositionCodec       = Codec[Position]{"Position", WritePosition, ReadPosition}
	AngleCodec          = Codec[Angle]{"Angle", WriteAngle, ReadAngle}
	EntityVelocityCodec = Codec[float64]{"EntityVelocity", WriteEntityVelocity, ReadEntityVelocity}
	ByteArrayCodec      = Codec[[]byte]{"ByteArray", WriteByteArray, ReadByteArray}
	RestBytesCodec      = Codec[[]byte]{"RestBytes", WriteRestBytes, ReadRestBytes}
)

// ArrayOf builds a VarInt-prefixed list codec around inner.
func ArrayOf[T any](inner Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Tag: "PrefixedArray[" + inner.Tag + "]",
		Write: func(w io.Writer, v []T) error {
			return WritePrefixedArray(w, v, inner.Write)
		},
		Read: func(r *Reader) ([]T, error) {
			return ReadPrefixedArray(r, inner.Read)
		},
	}
}

// OptionalOf builds a Boolean-prefixed optional codec around inner.
func OptionalOf[T any](inner Codec[T]) Codec[Optional[T]] {
	return Codec[Optional[T]]{
		Tag: "Optional[" + inner.Tag + "]",
		Write: func(w io.Writer, v Optional[T]) error {
			return WriteOptional(w, v, inner.Write)
		},
		Read: func(r *Reader) (Optional[T], error) {
			return ReadOptional(r, inner.Read)
		},
	}
}

// Field is one entry of a Schema, bound to a struct field of a packet value.
type Field struct {
	Name string
	Tag  string

	present func() bool
	encode  func(io.Writer) error
	decode  func(*Reader) error
}

// Bind ties a named field to the value at v using codec c.
func Bind[T any](name string, v *T, c Codec[T]) Field {
	return Field{
		Name: name,
		Tag:  c.Tag,
		encode: func(w io.Writer) error {
			return c.Write(w, *v)
		},
		decode: func(r *Reader) error {
			item, err := c.Read(r)
			if err != nil {
				return err
			}
			*v = item
			return nil
		},
	}
}

// If makes the field conditional. pred is evaluated after every preceding
// field has been decoded, so it may inspect them.
func (f Field) If(pred func() bool) Field {
	f.present = pred
	return f
}

func (f Field) Present() bool {
	return f.present == nil || f.present()
}

// Schema is the ordered field list of a packet variant.
type Schema []Field

// Encode writes every present field in order.
func (s Schema) Encode(w io.Writer) error {
	for _, f := range s {
		if !f.Present() {
			continue
		}
		if err := f.encode(w); err != nil {
			return fmt.Errorf("encode field %s (%s): %w", f.Name, f.Tag, err)
		}
	}
	return nil
}

// Decode consumes every present field in order. The first failure aborts and is
// reported as a *MalformedPacketError naming the field.
func (s Schema) Decode(r *Reader) error {
	for _, f := range s {
		if !f.Present() {
			continue
		}
		if err := f.decode(r); err != nil {
			return &MalformedPacketError{Field: f.Name, Err: err}
		}
	}
	return nil
}

// Names lists the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}
