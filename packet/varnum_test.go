package packet

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

var varintTc = []TestCase[int32]{
	{
		desc: "Zero",
		v:    0,
		ser:  []byte{0x00},
	},
	{
		desc: "One",
		v:    1,
		ser:  []byte{0x01},
	},
	{
		desc: "Two",
		v:    2,
		ser:  []byte{0x02},
	},
	{
		desc: "Max single byte (127)",
		v:    127,
		ser:  []byte{0x7f},
	},
	{
		desc: "Min two bytes (128)",
		v:    128,
		ser:  []byte{0x80, 0x01},
	},
	{
		desc: "Max two bytes (255)", // The largest value that fits in the first 14 bits (0x3FFF) is 16383, but 255 is a standard boundary test.
		v:    255,
		ser:  []byte{0xff, 0x01},
	},
	{
		desc: "Small three bytes (25565)",
		v:    25565,
		ser:  []byte{0xdd, 0xc7, 0x01},
	},
	{
		desc: "Max three bytes (2097151)",
		v:    2097151,
		ser:  []byte{0xff, 0xff, 0x7f},
	},
	{
		desc: "Max positive int32 (2147483647)",
		v:    2147483647,
		ser:  []byte{0xff, 0xff, 0xff, 0xff, 0x07},
	},
	{
		desc: "Negative one (-1)",
		v:    -1,
		ser:  []byte{0xff, 0xff, 0xff, 0xff, 0x0f},
	},
	{
		desc: "Min negative int32 (-2147483648)",
		v:    -2147483648,
		ser:  []byte{0x80, 0x80, 0x80, 0x80, 0x08},
	},
	{
		desc:      "VarInt too long",
		expectErr: ErrVarIntTooLong,
		v:         2147483647,
		ser:       []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x07},
	},
	{
		desc:      "Unexpected EOF",
		expectErr: io.ErrUnexpectedEOF,
		v:         2147483647,
		ser:       []byte{0xff, 0xff, 0xff, 0xff},
	},
}

func TestWriteVarInt(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 0, 5))
	for _, tC := range varintTc {
		if tC.expectErr != nil {
			continue
		}

		t.Run(tC.desc, func(t *testing.T) {
			err := WriteVarInt(buf, tC.v)
			if err != nil {
				t.Fatalf("WriteVarInt failed: %v", err)
			}

			if !bytes.Equal(buf.Bytes(), tC.ser) {
				t.Errorf("WriteVarInt expected %x, got %x", tC.ser, buf.Bytes())
			}
		})
		buf.Reset()
	}
}

func TestReadVarInt(t *testing.T) {
	for _, tC := range varintTc {
		t.Run(tC.desc, func(t *testing.T) {
			r := NewReader(tC.ser)

			got, err := ReadVarInt(&r)

			if tC.expectErr != nil {
				if err == nil {
					t.Fatalf("ReadVarInt expected error %v, but succeeded and returned value %d", tC.expectErr, got)
				}
				if !errors.Is(err, tC.expectErr) {
					t.Errorf("ReadVarInt expected error %v, but got error %v", tC.expectErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ReadVarInt failed: %v", err)
			}

			if got != tC.v {
				t.Errorf("ReadVarInt expected %d, got %d", tC.v, got)
			}

			// Ensure the reader consumed exactly all expected bytes (tC.ser)
			if r.Remaining() != 0 {
				t.Errorf("Reader did not consume all bytes. %d bytes remaining.", r.Remaining())
			}
		})
	}
}


func TestVarIntSize(t *testing.T) {
	for _, tC := range varintTc {
		if tC.expectErr != nil {
			continue
		}
		if got := VarIntSize(tC.v); got != len(tC.ser) {
			t.Errorf("VarIntSize(%d) expected %d, got %d", tC.v, len(tC.ser), got)
		}
	}
}

func TestReadVarIntStreamEOF(t *testing.T) {
	_, err := ReadVarInt(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("expected io.EOF before the first byte, got %v", err)
	}

	_, err = ReadVarInt(bytes.NewReader([]byte{0x80}))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF mid-value, got %v", err)
	}
}

var varlongTc = []TestCase[int64]{
	{
		desc: "Zero",
		v:    0,
		ser:  []byte{0x00},
	},
	{
		desc: "Max single byte (127)",
		v:    127,
		ser:  []byte{0x7f},
	},
	{
		desc: "Max positive int32",
		v:    2147483647,
		ser:  []byte{0xff, 0xff, 0xff, 0xff, 0x07},
	},
	{
		desc: "Max positive int64",
		v:    9223372036854775807,
		ser:  []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f},
	},
	{
		desc: "Negative one (-1)",
		v:    -1,
		ser:  []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
	},
	{
		desc: "Min negative int64",
		v:    -9223372036854775808,
		ser:  []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
	},
	{
		desc:      "VarLong too long",
		expectErr: ErrVarLongTooLong,
		ser:       []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
	},
}

func TestVarLong(t *testing.T) {
	for _, tC := range varlongTc {
		t.Run(tC.desc, func(t *testing.T) {
			r := NewReader(tC.ser)
			got, err := ReadVarLong(&r)
			if tC.expectErr != nil {
				if !errors.Is(err, tC.expectErr) {
					t.Errorf("ReadVarLong expected error %v, got %v", tC.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadVarLong failed: %v", err)
			}
			if got != tC.v {
				t.Errorf("ReadVarLong expected %d, got %d", tC.v, got)
			}

			var buf bytes.Buffer
			if err := WriteVarLong(&buf, tC.v); err != nil {
				t.Fatalf("WriteVarLong failed: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), tC.ser) {
				t.Errorf("WriteVarLong expected %x, got %x", tC.ser, buf.Bytes())
			}
		})
	}
}

func TestDecodeVarInt(t *testing.T) {
	v, rest, err := DecodeVarInt([]byte{0xdd, 0xc7, 0x01, 0xaa, 0xbb})
	if err != nil {
		t.Fatalf("DecodeVarInt failed: %v", err)
	}
	if v != 25565 {
		t.Errorf("DecodeVarInt expected 25565, got %d", v)
	}
	if !bytes.Equal(rest, []byte{0xaa, 0xbb}) {
		t.Errorf("DecodeVarInt rest expected aabb, got %x", rest)
	}

	if _, _, err := DecodeVarInt([]byte{0x80, 0x80}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("DecodeVarInt on a truncated value expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecodeVarIntFixtures(t *testing.T) {
	v, rest, err := DecodeVarInt([]byte{0xFF, 0x01, 0x41, 0x42})
	if err != nil {
		t.Fatalf("DecodeVarInt failed: %v", err)
	}
	if v != 255 || !bytes.Equal(rest, []byte{0x41, 0x42}) {
		t.Errorf("DecodeVarInt expected 255 and 4142, got %d and %x", v, rest)
	}

	_, _, err = DecodeVarInt([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80})
	if !errors.Is(err, ErrVarIntTooLong) || !errors.Is(err, ErrOverflow) {
		t.Errorf("DecodeVarInt on six continuation bytes expected ErrVarIntTooLong, got %v", err)
	}
}
