package packet

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// FuzzVarIntRoundtrip checks that every int32 survives encoding.
func FuzzVarIntRoundtrip(f *testing.F) {
	for _, n := range []int32{0, 1, 127, 128, 255, 25565, 2097151, math.MaxInt32, -1, math.MinInt32} {
		f.Add(n)
	}

	f.Fuzz(func(t *testing.T, n int32) {
		b := AppendVarInt(nil, n)
		if len(b) != VarIntSize(n) || len(b) > MaxVarIntLen {
			t.Fatalf("%d encoded to %d bytes, VarIntSize says %d", n, len(b), VarIntSize(n))
		}
		got, rest, err := DecodeVarInt(b)
		if err != nil {
			t.Fatalf("DecodeVarInt(%x): %v", b, err)
		}
		if got != n || len(rest) != 0 {
			t.Fatalf("DecodeVarInt(%x) = %d, %x; want %d", b, got, rest, n)
		}
		if got, err := ReadVarInt(bytes.NewReader(b)); err != nil || got != n {
			t.Fatalf("ReadVarInt(%x) = %d, %v; want %d", b, got, err, n)
		}
	})
}

func FuzzVarLongRoundtrip(f *testing.F) {
	for _, n := range []int64{0, 1, 127, 128, 2147483647, math.MaxInt64, -1, math.MinInt64} {
		f.Add(n)
	}

	f.Fuzz(func(t *testing.T, n int64) {
		b := AppendVarLong(nil, n)
		if len(b) > MaxVarLongLen {
			t.Fatalf("%d encoded to %d bytes", n, len(b))
		}
		got, rest, err := DecodeVarLong(b)
		if err != nil {
			t.Fatalf("DecodeVarLong(%x): %v", b, err)
		}
		if got != n || len(rest) != 0 {
			t.Fatalf("DecodeVarLong(%x) = %d, %x; want %d", b, got, rest, n)
		}
	})
}

// FuzzDecodeVarInt feeds arbitrary bytes to the decoder, which must either
// fail with a known error or consume between one and five bytes.
func FuzzDecodeVarInt(f *testing.F) {
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF, 0x01, 0x41, 0x42})
	f.Add([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80})
	f.Add([]byte{0x80})

	f.Fuzz(func(t *testing.T, data []byte) {
		v, rest, err := DecodeVarInt(data)
		if err != nil {
			if !errors.Is(err, ErrOverflow) && !errors.Is(err, ErrShortBuffer) {
				t.Fatalf("DecodeVarInt(%x): unexpected error %v", data, err)
			}
			return
		}
		if used := len(data) - len(rest); used < 1 || used > MaxVarIntLen {
			t.Fatalf("DecodeVarInt(%x) = %d after consuming %d bytes", data, v, used)
		}
	})
}

// FuzzPositionRoundtrip folds the inputs into the 26/12/26 bit ranges and
// checks both layouts and the wire form.
func FuzzPositionRoundtrip(f *testing.F) {
	f.Add(int32(0), int16(0), int32(0))
	f.Add(int32(18357644), int16(831), int32(-20882616))
	f.Add(int32(-33554432), int16(-2048), int32(33554431))
	f.Add(int32(-1), int16(-1), int32(-1))

	f.Fuzz(func(t *testing.T, x int32, y int16, z int32) {
		p := Position{
			X: x << 6 >> 6,
			Y: y << 4 >> 4,
			Z: z << 6 >> 6,
		}
		if got := UnpackPosition(p.Pack()); got != p {
			t.Fatalf("UnpackPosition(%+v.Pack()) = %+v", p, got)
		}
		if got := UnpackLegacyPosition(p.PackLegacy()); got != p {
			t.Fatalf("UnpackLegacyPosition(%+v.PackLegacy()) = %+v", p, got)
		}

		var buf bytes.Buffer
		if err := WritePosition(&buf, p); err != nil {
			t.Fatalf("WritePosition: %v", err)
		}
		r := NewReader(buf.Bytes())
		got, err := ReadPosition(&r)
		if err != nil || got != p {
			t.Fatalf("ReadPosition = %+v, %v; want %+v", got, err, p)
		}
	})
}

// FuzzEntityVelocity checks that a velocity inside the int16 range comes back
// within one network unit.
func FuzzEntityVelocity(f *testing.F) {
	for _, v := range []float64{0, 1, -1, 0.00374, -0.00374, 3.14159, -81.9, 81.9175} {
		f.Add(v)
	}

	f.Fuzz(func(t *testing.T, v float64) {
		if math.IsNaN(v) || math.Abs(v*VelocityScale) > math.MaxInt16 {
			t.Skip()
		}
		var buf bytes.Buffer
		if err := WriteEntityVelocity(&buf, v); err != nil {
			t.Fatalf("WriteEntityVelocity: %v", err)
		}
		r := NewReader(buf.Bytes())
		got, err := ReadEntityVelocity(&r)
		if err != nil {
			t.Fatalf("ReadEntityVelocity: %v", err)
		}
		if d := math.Abs(got - v); d >= 1.0/VelocityScale {
			t.Fatalf("velocity %v came back as %v", v, got)
		}
	})
}
