package mcengine

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

const (
	SharedSecretLen = 16
	VerifyTokenLen  = 4
	rsaKeyBits      = 1024
)

var ErrSharedSecretLength = errors.New("shared secret must be 16 bytes")

// cfb8 is CFB mode with an 8-bit segment size. crypto/cipher only provides
// full-block CFB.
type cfb8 struct {
	block   cipher.Block
	sr      []byte // shift register
	out     []byte
	decrypt bool
}

func newCFB8(block cipher.Block, iv []byte, decrypt bool) cipher.Stream {
	bs := block.BlockSize()
	if len(iv) != bs {
		panic("mcengine: IV length must equal block size")
	}
	return &cfb8{
		block:   block,
		sr:      append([]byte(nil), iv...),
		out:     make([]byte, bs),
		decrypt: decrypt,
	}
}

func (c *cfb8) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("mcengine: output smaller than input")
	}
	last := len(c.sr) - 1
	for i, in := range src {
		c.block.Encrypt(c.out, c.sr)
		o := in ^ c.out[0]
		copy(c.sr, c.sr[1:])
		if c.decrypt {
			c.sr[last] = in
		} else {
			c.sr[last] = o
		}
		dst[i] = o
	}
}

// newCFB8Pair returns the encrypting and decrypting streams for one
// connection. The secret is both key and IV.
func newCFB8Pair(secret []byte) (enc, dec cipher.Stream, err error) {
	if len(secret) != SharedSecretLen {
		return nil, nil, fmt.Errorf("%w: got %d", ErrSharedSecretLength, len(secret))
	}
	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, nil, err
	}
	return newCFB8(block, secret, false), newCFB8(block, secret, true), nil
}

// KeyPair is the server's RSA key used during the login encryption exchange.
type KeyPair struct {
	priv *rsa.PrivateKey
	der  []byte
}

func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return &KeyPair{priv: priv, der: der}, nil
}

// PublicDER is the ASN.1 DER SubjectPublicKeyInfo sent in EncryptionRequest.
func (k *KeyPair) PublicDER() []byte {
	return k.der
}

func (k *KeyPair) Decrypt(b []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(nil, k.priv, b)
}

// EncryptFor encrypts b to the DER public key, as a client would.
func EncryptFor(der []byte, b []byte) ([]byte, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsa.EncryptPKCS1v15(rand.Reader, rsaPub, b)
}
