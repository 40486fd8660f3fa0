package packet

import (
	"errors"
	"fmt"
	"io"
)

const (
	MaxVarIntLen  = 5
	MaxVarLongLen = 10
)

var (
	ErrOverflow       = errors.New("varnum overflow")
	ErrVarIntTooLong  = fmt.Errorf("VarInt is too long: %w", ErrOverflow)
	ErrVarLongTooLong = fmt.Errorf("VarLong is too long: %w", ErrOverflow)
)

// AppendVarInt appends the VarInt encoding of v to dst.
// Negative values always take the full 5 bytes.
func AppendVarInt(dst []byte, v int32) []byte {
	uv := uint32(v)
	for uv >= 0x80 {
		dst = append(dst, byte(uv)|0x80)
		uv >>= 7
	}
	return append(dst, byte(uv))
}

// AppendVarLong appends the VarLong encoding of v to dst.
func AppendVarLong(dst []byte, v int64) []byte {
	uv := uint64(v)
	for uv >= 0x80 {
		dst = append(dst, byte(uv)|0x80)
		uv >>= 7
	}
	return append(dst, byte(uv))
}

func WriteVarInt(w io.Writer, v int32) error {
	var buf [MaxVarIntLen]byte
	_, err := w.Write(AppendVarInt(buf[:0], v))
	return err
}

func WriteVarLong(w io.Writer, v int64) error {
	var buf [MaxVarLongLen]byte
	_, err := w.Write(AppendVarLong(buf[:0], v))
	return err
}

// VarIntSize reports how many bytes the VarInt encoding of v takes.
func VarIntSize(v int32) int {
	uv := uint32(v)
	n := 1
	for uv >= 0x80 {
		uv >>= 7
		n++
	}
	return n
}

// ReadVarInt reads a VarInt from a byte stream.
//
// io.EOF is returned untouched when the stream ends before the first byte,
// so a clean close can be told apart from a truncated value.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var v uint32
	var shift uint

	for n := 0; n < MaxVarIntLen; n++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				err = io.ErrUnexpectedEOF
			}
			return int32(v), err
		}

		v |= uint32(b&0x7F) << shift
		shift += 7

		if (b & 0x80) == 0 {
			return int32(v), nil
		}
	}
	return int32(v), ErrVarIntTooLong
}

// ReadVarLong reads a VarLong from a byte stream. See ReadVarInt for EOF handling.
func ReadVarLong(r io.ByteReader) (int64, error) {
	var v uint64
	var shift uint

	for n := 0; n < MaxVarLongLen; n++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				err = io.ErrUnexpectedEOF
			}
			return int64(v), err
		}

		v |= uint64(b&0x7F) << shift
		shift += 7

		if (b & 0x80) == 0 {
			return int64(v), nil
		}
	}
	return int64(v), ErrVarLongTooLong
}

// DecodeVarInt decodes a VarInt from the front of b and returns the bytes after it.
func DecodeVarInt(b []byte) (v int32, rest []byte, err error) {
	r := NewReader(b)
	if v, err = ReadVarInt(&r); err != nil {
		return 0, b, err
	}
	return v, r.Rest(), nil
}

// DecodeVarLong decodes a VarLong from the front of b and returns the bytes after it.
func DecodeVarLong(b []byte) (v int64, rest []byte, err error) {
	r := NewReader(b)
	if v, err = ReadVarLong(&r); err != nil {
		return 0, b, err
	}
	return v, r.Rest(), nil
}
