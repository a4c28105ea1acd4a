package credseal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
)

// Token format constants. A token is the standard base64 encoding of
// nonce(12) || ciphertext(n) || tag(16).
const (
	// aesKeySize is the required key size in bytes (AES-256).
	aesKeySize = 32

	// gcmNonceSize is the nonce size for AES-GCM (12 bytes).
	gcmNonceSize = 12

	// gcmTagSize is the authentication tag size for GCM (16 bytes).
	gcmTagSize = 16

	// envelopeOverhead is the number of bytes a token adds to the plaintext.
	envelopeOverhead = gcmNonceSize + gcmTagSize
)

// Envelope is a sealed value split into its named parts.
type Envelope struct {
	Nonce      []byte // 12 bytes
	Ciphertext []byte // len(plaintext) bytes
	Tag        []byte // 16 bytes
}

// Len returns the size of the envelope in bytes, before base64 encoding.
func (e Envelope) Len() int {
	return len(e.Nonce) + len(e.Ciphertext) + len(e.Tag)
}

func (e Envelope) validate() error {
	if len(e.Nonce) != gcmNonceSize {
		return fmt.Errorf("nonce has %d bytes, want %d", len(e.Nonce), gcmNonceSize)
	}
	if len(e.Tag) != gcmTagSize {
		return fmt.Errorf("tag has %d bytes, want %d", len(e.Tag), gcmTagSize)
	}
	return nil
}

// Bytes returns nonce || ciphertext || tag.
func (e Envelope) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(e.Len())
	// bytes.Buffer writes never fail.
	_ = writeEnvelope(&buf, e)
	return buf.Bytes()
}

// Encode returns the token form of the envelope. Envelopes produced by Encrypt always encode;
// a hand-built envelope with a wrong nonce or tag size yields ErrEncryptionFailure.
func (e Envelope) Encode() (string, error) {
	if err := e.validate(); err != nil {
		return "", fmt.Errorf("%w: malformed envelope: %v", ErrEncryptionFailure, err)
	}
	return base64.StdEncoding.EncodeToString(e.Bytes()), nil
}

// sealed returns ciphertext || tag, the layout cipher.AEAD.Open expects.
func (e Envelope) sealed() []byte {
	out := make([]byte, 0, len(e.Ciphertext)+len(e.Tag))
	out = append(out, e.Ciphertext...)
	return append(out, e.Tag...)
}

// writeEnvelope writes nonce, ciphertext and tag to w in wire order.
func writeEnvelope(w io.Writer, e Envelope) error {
	for _, part := range [][]byte{e.Nonce, e.Ciphertext, e.Tag} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

// readEnvelope splits raw envelope bytes into their parts.
// All returned slices are copies, safe from caller mutation of data.
func readEnvelope(data []byte) (Envelope, error) {
	if len(data) < envelopeOverhead {
		return Envelope{}, fmt.Errorf("%w: token too short", ErrAuthenticationFailure)
	}
	tagStart := len(data) - gcmTagSize
	return Envelope{
		Nonce:      append([]byte(nil), data[:gcmNonceSize]...),
		Ciphertext: append([]byte{}, data[gcmNonceSize:tagStart]...),
		Tag:        append([]byte(nil), data[tagStart:]...),
	}, nil
}

// ParseEnvelope decodes a token into an Envelope. Malformed or truncated tokens yield
// ErrAuthenticationFailure; the token content is not echoed in the error.
func ParseEnvelope(token string) (Envelope, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: token is not valid base64", ErrAuthenticationFailure)
	}
	return readEnvelope(data)
}
