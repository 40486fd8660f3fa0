package mcengine

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/gstoney/mcengine/internal/observability"
)

const (
	legacyPingID = 0xFE
	legacyKickID = 0xFF

	// legacyPingWait bounds how long the responder waits for the bytes that
	// tell the legacy pings apart from each other and from a modern frame.
	legacyPingWait = 250 * time.Millisecond
)

type legacyPing int

const (
	notLegacy legacyPing = iota
	legacyBeta
	legacyModern
)

// sniffLegacyPing looks at the first inbound bytes without consuming them.
func (c *Conn) sniffLegacyPing() (legacyPing, error) {
	b, err := c.tr.Peek(1)
	if err != nil {
		return notLegacy, err
	}
	if b[0] != legacyPingID {
		return notLegacy, nil
	}
	return classifyLegacyPing(c.peekWait(3)), nil
}

// classifyLegacyPing sorts a connection that opened with 0xFE. 0xFE 0x01 is
// also the VarInt 254, the length of a Handshake frame with a long server
// address; the byte after it is then the packet id 0x00, where a 1.6 ping
// carries 0xFA and a 1.4 ping sends nothing more.
func classifyLegacyPing(head []byte) legacyPing {
	switch {
	case len(head) < 2:
		return legacyBeta
	case head[1] != 0x01:
		return notLegacy
	case len(head) == 2 || head[2] != 0x00:
		return legacyModern
	}
	return notLegacy
}

// peekWait peeks up to n bytes, giving the client legacyPingWait to send
// any that are not buffered yet.
func (c *Conn) peekWait(n int) []byte {
	if c.tr.Buffered() >= n {
		b, _ := c.tr.Peek(n)
		return b
	}
	c.nc.SetReadDeadline(time.Now().Add(legacyPingWait))
	b, _ := c.tr.Peek(n)
	c.nc.SetReadDeadline(time.Time{})
	return b
}

// serveLegacyPing answers a pre-netty server list ping and leaves the
// connection to be closed.
func (c *Conn) serveLegacyPing(kind legacyPing) error {
	modern := kind == legacyModern

	doc := c.srv.statusDocument(0)
	c.log.Debug().Bool("modern", modern).Msg("legacy ping")
	observability.RecordLegacyPing()

	_, err := c.nc.Write(encodeLegacyPing(doc, modern))
	return err
}

// encodeLegacyPing builds the kick packet that carries the legacy ping reply:
// 0xFF, the UTF-16 length as an unsigned short, then UTF-16BE text.
func encodeLegacyPing(doc StatusDocument, modern bool) []byte {
	online := strconv.Itoa(doc.Players.Online)
	max := strconv.Itoa(doc.Players.Max)

	var text string
	if modern {
		text = strings.Join([]string{
			"§1",
			strconv.Itoa(int(doc.Version.Protocol)),
			doc.Version.Name,
			doc.Description.Text,
			online,
			max,
		}, "\x00")
	} else {
		// § separates the fields, so it cannot appear in the description
		motd := strings.ReplaceAll(doc.Description.Text, "§", "")
		text = motd + "§" + online + "§" + max
	}

	units := utf16.Encode([]rune(text))
	buf := make([]byte, 3+2*len(units))
	buf[0] = legacyKickID
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(units)))
	for i, u := range units {
		binary.BigEndian.PutUint16(buf[3+2*i:], u)
	}
	return buf
}

func decodeLegacyPing(b []byte) (string, bool) {
	if len(b) < 3 || b[0] != legacyKickID {
		return "", false
	}
	n := int(binary.BigEndian.Uint16(b[1:3]))
	if len(b) != 3+2*n {
		return "", false
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[3+2*i:])
	}
	return string(utf16.Decode(units)), true
}
