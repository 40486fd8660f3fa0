package mcengine

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gstoney/mcengine/packet"
)

var (
	ErrPacketTooBig   = errors.New("packet too big")
	ErrPeekUnbuffered = errors.New("transport input is not buffered by the transport")
)

const (
	DefaultMaxPacketLen       = 2 << 20
	DefaultMaxDecompressedLen = 8 << 20

	readChunk = 4 << 10
)

type TransportConfig struct {
	MaxPacketLen       int32
	MaxDecompressedLen int32
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxPacketLen:       DefaultMaxPacketLen,
		MaxDecompressedLen: DefaultMaxDecompressedLen,
	}
}

type byteReader interface {
	io.Reader
	io.ByteReader
}

type byteWriter interface {
	io.Writer
	io.ByteWriter
}

type flusher interface {
	Flush() error
}

// Transport provides read and write access to a framed stream,
// with compression and encryption handled internally.
// Transport does not deserialize packets.
//
// Recv and ReadPacket must be called from a single goroutine. Send may be
// called concurrently with them and with itself.
type Transport struct {
	rawR io.Reader
	rawW io.Writer
	rbuf *bufio.Reader // set when the transport buffers its own input

	reader  byteReader
	fReader FrameReader
	zReader io.ReadCloser

	wmu     sync.Mutex
	writer  byteWriter
	zBuffer bytes.Buffer
	zWriter *zlib.Writer

	readThreshold  int
	writeThreshold int // guarded by wmu
	encrypted      bool

	cfg TransportConfig
}

// NewTransport creates a Transport.
//
// For readers/writers that perform syscalls (e.g. net.Conn), buffering is
// required. Indicate buffered I/O by implementing io.ByteReader/io.ByteWriter.
// If these interfaces are not implemented, the reader/writer will be wrapped
// with bufio.
func NewTransport(r io.Reader, w io.Writer, cfg TransportConfig) *Transport {
	if cfg.MaxPacketLen <= 0 {
		cfg.MaxPacketLen = DefaultMaxPacketLen
	}
	if cfg.MaxDecompressedLen <= 0 {
		cfg.MaxDecompressedLen = DefaultMaxDecompressedLen
	}

	t := &Transport{
		rawR:           r,
		rawW:           w,
		readThreshold:  -1,
		writeThreshold: -1,
		cfg:            cfg,
	}

	if b, ok := r.(byteReader); ok {
		t.reader = b
	} else if r != nil {
		t.rbuf = bufio.NewReader(r)
		t.reader = t.rbuf
	}

	if b, ok := w.(byteWriter); ok {
		t.writer = b
	} else if w != nil {
		t.writer = bufio.NewWriter(w)
	}

	t.fReader = FrameReader{t.reader, 0}
	return t
}

// Peek returns the next n inbound bytes without consuming them.
func (t *Transport) Peek(n int) ([]byte, error) {
	if t.rbuf == nil {
		return nil, ErrPeekUnbuffered
	}
	return t.rbuf.Peek(n)
}

// Buffered reports how many inbound bytes have been read from the source but
// not consumed.
func (t *Transport) Buffered() int {
	if t.rbuf == nil {
		return 0
	}
	return t.rbuf.Buffered()
}

func (t *Transport) Recv() (r PayloadReader, err error) {
	frameLength, err := t.fReader.Next()
	if err != nil {
		return nil, err
	}

	if frameLength > t.cfg.MaxPacketLen {
		return nil, ErrPacketTooBig
	}

	r = plainPayload{&t.fReader}

	if t.readThreshold < 0 {
		return r, nil
	}

	decompressedLen, err := packet.ReadVarInt(&t.fReader)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch {
	case decompressedLen < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidDataLength, decompressedLen)
	case decompressedLen == 0:
		return r, nil
	case decompressedLen > t.cfg.MaxDecompressedLen:
		return nil, ErrPacketTooBig
	}

	if t.zReader == nil {
		t.zReader, err = zlib.NewReader(&t.fReader)
	} else {
		err = t.zReader.(zlib.Resetter).Reset(&t.fReader, nil)
	}
	if err != nil {
		return nil, err
	}

	return &compressedPayload{t.zReader, &t.fReader, decompressedLen}, nil
}

// ReadPacket reads one frame and returns its decompressed body, which starts
// with the packet id.
func (t *Transport) ReadPacket() ([]byte, error) {
	pr, err := t.Recv()
	if err != nil {
		return nil, err
	}

	// The declared length is only trusted as far as bytes actually arrive.
	var body bytes.Buffer
	body.Grow(int(min(pr.Remaining(), readChunk)))
	if _, err = body.ReadFrom(pr); err != nil {
		pr.Discard()
		return nil, err
	}
	if err = pr.Close(); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}

// Send writes b as one frame and flushes it.
func (t *Transport) Send(b []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := t.writeFrame(b); err != nil {
		return err
	}
	return t.flush()
}

func (t *Transport) writeFrame(b []byte) error {
	length := len(b)

	if t.writeThreshold < 0 {
		if err := packet.WriteVarInt(t.writer, int32(length)); err != nil {
			return err
		}
		_, err := t.writer.Write(b)
		return err
	}

	if length < t.writeThreshold {
		if err := packet.WriteVarInt(t.writer, int32(length+1)); err != nil {
			return err
		}
		if err := t.writer.WriteByte(0); err != nil {
			return err
		}
		_, err := t.writer.Write(b)
		return err
	}

	t.zBuffer.Reset()
	if t.zWriter == nil {
		t.zWriter = zlib.NewWriter(&t.zBuffer)
	} else {
		t.zWriter.Reset(&t.zBuffer)
	}
	// writes to a bytes.Buffer cannot fail
	_ = packet.WriteVarInt(&t.zBuffer, int32(length))

	if _, err := t.zWriter.Write(b); err != nil {
		return err
	}
	if err := t.zWriter.Close(); err != nil {
		return err
	}

	if err := packet.WriteVarInt(t.writer, int32(t.zBuffer.Len())); err != nil {
		return err
	}
	_, err := t.zBuffer.WriteTo(t.writer)
	return err
}

func (t *Transport) flush() error {
	if f, ok := t.writer.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// SetCompression installs threshold in both directions. A negative threshold
// disables compression. It must be called between frames on the reading
// goroutine, after the frame that announced it has been sent.
func (t *Transport) SetCompression(threshold int) {
	t.readThreshold = threshold

	t.wmu.Lock()
	t.writeThreshold = threshold
	t.wmu.Unlock()
}

func (t *Transport) CompressionThreshold() int {
	return t.readThreshold
}

func (t *Transport) Encrypted() bool {
	return t.encrypted
}

// EnableEncryption switches both directions to AES/CFB8 keyed by secret,
// which also serves as the IV. Bytes already buffered from the source were
// sent encrypted by the peer and are decrypted ahead of the rest of the
// stream. Like SetCompression it must be called between frames.
func (t *Transport) EnableEncryption(secret []byte) error {
	if t.encrypted {
		return errors.New("encryption already enabled")
	}
	if t.fReader.remaining > 0 {
		return ErrNotExhausted
	}

	enc, dec, err := newCFB8Pair(secret)
	if err != nil {
		return err
	}

	src := t.rawR
	if t.rbuf != nil && t.rbuf.Buffered() > 0 {
		pending, _ := t.rbuf.Peek(t.rbuf.Buffered())
		src = io.MultiReader(bytes.NewReader(bytes.Clone(pending)), t.rawR)
	}
	t.rbuf = bufio.NewReader(cipher.StreamReader{S: dec, R: src})
	t.reader = t.rbuf
	t.fReader.src = t.reader

	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := t.flush(); err != nil {
		return err
	}
	t.writer = bufio.NewWriter(cipher.StreamWriter{S: enc, W: t.rawW})
	t.encrypted = true
	return nil
}
