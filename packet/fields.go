package packet

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"math"

	"github.com/google/uuid"
)

type WriteFn[T any] func(io.Writer, T) error
type ReadFn[T any] func(*Reader) (T, error)

var (
	ErrInvalidBoolean = errors.New("invalid byte for Boolean field")
	ErrNegativeLength = errors.New("negative length")
	ErrStringTooLong  = errors.New("string exceeds maximum length")
)

// MaxStringBytes bounds the byte length of a String on the wire.
// 32767 UTF-16 units encode to at most 4 bytes each.
const MaxStringBytes = 32767 * 4

func WriteBoolean(w io.Writer, v bool) (err error) {
	b := byte(0)
	if v {
		b = 1
	}

	_, err = w.Write([]byte{b})
	return
}

func ReadBoolean(r *Reader) (v bool, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return
	}

	switch b {
	case 0:
		v = false
	case 1:
		v = true
	default:
		err = ErrInvalidBoolean
	}
	return
}

func WriteByte(w io.Writer, v int8) (err error) {
	_, err = w.Write([]byte{byte(v)})
	return
}

func ReadByte(r *Reader) (v int8, err error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func WriteUnsignedByte(w io.Writer, v byte) (err error) {
	_, err = w.Write([]byte{v})
	return
}

func ReadUnsignedByte(r *Reader) (v byte, err error) {
	return r.ReadByte()
}

func WriteShort(w io.Writer, v int16) (err error) {
	return WriteUnsignedShort(w, uint16(v))
}

func ReadShort(r *Reader) (v int16, err error) {
	u, err := ReadUnsignedShort(r)
	return int16(u), err
}

func WriteUnsignedShort(w io.Writer, v uint16) (err error) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err = w.Write(b[:])
	return
}

func ReadUnsignedShort(r *Reader) (v uint16, err error) {
	b, err := r.Read(2)
	if err != nil {
		return
	}

	v = binary.BigEndian.Uint16(b)
	return
}

func WriteInt(w io.Writer, v int32) (err error) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err = w.Write(b[:])
	return
}

func ReadInt(r *Reader) (v int32, err error) {
	b, err := r.Read(4)
	if err != nil {
		return
	}

	v = int32(binary.BigEndian.Uint32(b))
	return
}

func WriteLong(w io.Writer, v int64) (err error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err = w.Write(b[:])
	return
}

func ReadLong(r *Reader) (v int64, err error) {
	b, err := r.Read(8)
	if err != nil {
		return
	}

	v = int64(binary.BigEndian.Uint64(b))
	return
}

func WriteFloat(w io.Writer, v float32) (err error) {
	return WriteInt(w, int32(math.Float32bits(v)))
}

func ReadFloat(r *Reader) (v float32, err error) {
	i, err := ReadInt(r)
	return math.Float32frombits(uint32(i)), err
}

func WriteDouble(w io.Writer, v float64) (err error) {
	return WriteLong(w, int64(math.Float64bits(v)))
}

func ReadDouble(r *Reader) (v float64, err error) {
	i, err := ReadLong(r)
	return math.Float64frombits(uint64(i)), err
}

func readVarInt(r *Reader) (int32, error) {
	return ReadVarInt(r)
}

func readVarLong(r *Reader) (int64, error) {
	return ReadVarLong(r)
}

// WriteString writes the byte length, not the rune count, as the prefix.
func WriteString(w io.Writer, v string) (err error) {
	if len(v) > MaxStringBytes {
		return ErrStringTooLong
	}
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}
	_, err = io.WriteString(w, v)
	return
}

func ReadString(r *Reader) (v string, err error) {
	length := int32(0)
	length, err = ReadVarInt(r)
	if err != nil {
		return
	}

	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length > MaxStringBytes {
		err = ErrStringTooLong
		return
	}

	buf, err := r.Read(int(length))
	return string(buf), err
}

// WriteByteArray writes a VarInt length followed by the raw bytes.
func WriteByteArray(w io.Writer, v []byte) (err error) {
	if err = WriteVarInt(w, int32(len(v))); err != nil {
		return
	}
	_, err = w.Write(v)
	return
}

func ReadByteArray(r *Reader) (v []byte, err error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}

	b, err := r.Read(int(length))
	if err != nil {
		return
	}
	v = append([]byte(nil), b...)
	return
}

// WriteRestBytes writes v without a length prefix. It only makes sense as the
// last field of a packet.
func WriteRestBytes(w io.Writer, v []byte) (err error) {
	_, err = w.Write(v)
	return
}

func ReadRestBytes(r *Reader) (v []byte, err error) {
	return append([]byte(nil), r.ReadAll()...), nil
}

// Position's serialized form is composed of X, Z which are 26 bits each, and 12 bits of Y.
// Thus, unintended content can be written when the values are out of range
type Position struct {
	X int32
	Y int16
	Z int32
}

func (p Position) Pack() uint64 {
	return (uint64(p.X&0x3FFFFFF) << 38) |
		(uint64(p.Z&0x3FFFFFF) << 12) |
		(uint64(p.Y) & 0xFFF)
}

// UnpackPosition sign-extends every component.
func UnpackPosition(packed uint64) Position {
	return Position{
		X: int32(int64(packed) >> 38),
		Z: int32(int64(packed<<26) >> 38),
		Y: int16(int64(packed<<52) >> 52),
	}
}

// PackLegacy uses the layout of protocols before 1.14 (x, y, z).
func (p Position) PackLegacy() uint64 {
	return (uint64(p.X&0x3FFFFFF) << 38) |
		((uint64(p.Y) & 0xFFF) << 26) |
		uint64(p.Z&0x3FFFFFF)
}

func UnpackLegacyPosition(packed uint64) Position {
	return Position{
		X: int32(int64(packed) >> 38),
		Y: int16(int64(packed<<26) >> 52),
		Z: int32(int64(packed<<38) >> 38),
	}
}

func WritePosition(w io.Writer, v Position) (err error) {
	return WriteLong(w, int64(v.Pack()))
}

func ReadPosition(r *Reader) (v Position, err error) {
	packed, err := ReadLong(r)
	if err != nil {
		return
	}
	return UnpackPosition(uint64(packed)), nil
}

func WriteUUID(w io.Writer, v uuid.UUID) (err error) {
	_, err = w.Write(v[:])
	return
}

func ReadUUID(r *Reader) (v uuid.UUID, err error) {
	b, err := r.Read(16)
	if err != nil {
		return
	}

	v = uuid.UUID(b)
	return
}

// WriteUUIDString writes the hyphenated form as a String, as protocol 578 does
// in LoginSuccess.
func WriteUUIDString(w io.Writer, v uuid.UUID) error {
	return WriteString(w, v.String())
}

func ReadUUIDString(r *Reader) (v uuid.UUID, err error) {
	s, err := ReadString(r)
	if err != nil {
		return
	}
	return uuid.Parse(s)
}

// UUIDHex is the textual form without hyphens.
func UUIDHex(v uuid.UUID) string {
	return hex.EncodeToString(v[:])
}

// Angle is a rotation in steps of 1/256 of a full turn.
type Angle byte

func AngleFromDegrees(deg float64) Angle {
	return Angle(int64(math.Floor(deg*256/360)) & 0xFF)
}

func (a Angle) Degrees() float64 {
	return float64(a) * 360 / 256
}

func WriteAngle(w io.Writer, v Angle) (err error) {
	return WriteUnsignedByte(w, byte(v))
}

func ReadAngle(r *Reader) (v Angle, err error) {
	b, err := r.ReadByte()
	return Angle(b), err
}

// VelocityScale converts m/s to network units.
const VelocityScale = 400

// WriteEntityVelocity truncates toward zero and clamps to the int16 range.
func WriteEntityVelocity(w io.Writer, v float64) (err error) {
	scaled := math.Trunc(v * VelocityScale)
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	} else if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	return WriteShort(w, int16(scaled))
}

func ReadEntityVelocity(r *Reader) (v float64, err error) {
	s, err := ReadShort(r)
	return float64(s) / VelocityScale, err
}

func WritePrefixedArray[T any](w io.Writer, v []T, write WriteFn[T]) (err error) {
	err = WriteVarInt(w, int32(len(v)))
	if err != nil {
		return
	}

	for _, item := range v {
		err = write(w, item)
		if err != nil {
			return
		}
	}
	return
}

func ReadPrefixedArray[T any](r *Reader, read ReadFn[T]) (v []T, err error) {
	length := int32(0)
	if length, err = ReadVarInt(r); err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	// every element takes at least one byte
	if int(length) > r.Remaining() {
		err = ErrShortBuffer
		return
	}

	v = make([]T, length)
	for i := 0; i < int(length); i++ {
		var item T
		if item, err = read(r); err != nil {
			return
		}
		v[i] = item
	}

	return
}

// Optional[T] represents Optional field in a packet
//
// Serialized Optional[T] is prefixed with Boolean of whether the value exists.
// If so, the value T is followed.
type Optional[T any] struct {
	Exists bool
	Item   T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Exists: true, Item: v}
}

func WriteOptional[T any](w io.Writer, v Optional[T], write WriteFn[T]) (err error) {
	err = WriteBoolean(w, v.Exists)
	if err != nil {
		return
	}

	if v.Exists {
		err = write(w, v.Item)
	}
	return
}

func ReadOptional[T any](r *Reader, read ReadFn[T]) (v Optional[T], err error) {
	if v.Exists, err = ReadBoolean(r); err != nil {
		return
	}

	if v.Exists {
		v.Item, err = read(r)
	}
	return
}
