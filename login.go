package mcengine

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gstoney/mcengine/packet"
)

var (
	ErrInvalidUsername     = errors.New("username must be 1 to 16 characters")
	ErrVerifyTokenMismatch = errors.New("verify token mismatch")
)

const maxUsernameLen = 16

// LoginConfig controls the optional steps of the Login state.
type LoginConfig struct {
	Encryption bool
	Keys       *KeyPair // generated on first use when nil

	Compression          bool
	CompressionThreshold int
}

// OfflineUUID derives the version 3 UUID an offline-mode server assigns to name.
func OfflineUUID(name string) uuid.UUID {
	h := md5.Sum([]byte("OfflinePlayer:" + name))
	h[6] = h[6]&0x0f | 0x30
	h[8] = h[8]&0x3f | 0x80
	return uuid.UUID(h)
}

// ChatText renders s as a plain JSON text component.
func ChatText(s string) string {
	b, _ := json.Marshal(struct {
		Text string `json:"text"`
	}{s})
	return string(b)
}

func (c *Conn) login() error {
	p, err := c.readPacket()
	if err != nil {
		return err
	}
	start, ok := p.(*packet.LoginStart)
	if !ok {
		return unexpected(p)
	}

	if n := utf8.RuneCountInString(start.Name); n < 1 || n > maxUsernameLen {
		return &packet.MalformedPacketError{Kind: packet.KindLoginStart, Field: "username", Err: ErrInvalidUsername}
	}
	c.log = c.log.With().Str("player", start.Name).Logger()

	if proto := c.Protocol(); !c.reg.Supports(proto) {
		reason := fmt.Sprintf("Unsupported protocol version %d; this server runs %s", proto, versionName(c.reg.Canonical()))
		if err := c.WritePacket(&packet.LoginDisconnect{Reason: ChatText(reason)}); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, proto)
	}

	cfg := c.srv.Login
	if cfg.Encryption {
		if err := c.negotiateEncryption(); err != nil {
			return err
		}
	}

	if cfg.Compression {
		if err := c.WritePacket(&packet.SetCompression{Threshold: int32(cfg.CompressionThreshold)}); err != nil {
			return err
		}
		c.tr.SetCompression(cfg.CompressionThreshold)
	}

	c.name = start.Name
	c.uuid = OfflineUUID(start.Name)
	if err := c.WritePacket(&packet.LoginSuccess{UUID: c.uuid, Username: c.name}); err != nil {
		return err
	}

	c.setState(packet.Play)
	return nil
}

func (c *Conn) negotiateEncryption() error {
	keys, err := c.srv.keyPair()
	if err != nil {
		return err
	}

	token := make([]byte, VerifyTokenLen)
	if _, err := rand.Read(token); err != nil {
		return err
	}

	req := &packet.EncryptionRequest{
		ServerID:    "",
		PublicKey:   keys.PublicDER(),
		VerifyToken: token,
	}
	if err := c.WritePacket(req); err != nil {
		return err
	}

	p, err := c.readPacket()
	if err != nil {
		return err
	}
	resp, ok := p.(*packet.EncryptionResponse)
	if !ok {
		return unexpected(p)
	}

	got, err := keys.Decrypt(resp.VerifyToken)
	if err != nil {
		return &packet.MalformedPacketError{Kind: packet.KindEncryptionResponse, Field: "token", Err: err}
	}
	if subtle.ConstantTimeCompare(got, token) != 1 {
		return &packet.MalformedPacketError{Kind: packet.KindEncryptionResponse, Field: "token", Err: ErrVerifyTokenMismatch}
	}

	secret, err := keys.Decrypt(resp.SharedSecret)
	if err != nil {
		return &packet.MalformedPacketError{Kind: packet.KindEncryptionResponse, Field: "secret", Err: err}
	}
	if err := c.tr.EnableEncryption(secret); err != nil {
		return &packet.MalformedPacketError{Kind: packet.KindEncryptionResponse, Field: "secret", Err: err}
	}

	c.log.Debug().Msg("encryption enabled")
	return nil
}
