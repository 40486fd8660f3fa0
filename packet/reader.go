package packet

import (
	"fmt"
	"io"
)

// ErrShortBuffer is returned when a codec needs more bytes than the buffer holds.
var ErrShortBuffer = fmt.Errorf("short buffer: %w", io.ErrUnexpectedEOF)

// Reader is a cursor over one decoded packet body.
// Slices returned by Read alias the underlying buffer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) Reader {
	return Reader{
		buf: buf,
		off: 0,
	}
}

func (r Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Rest returns the unread bytes without consuming them.
func (r Reader) Rest() []byte {
	return r.buf[r.off:]
}

func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadAll consumes and returns every unread byte.
func (r *Reader) ReadAll() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}
