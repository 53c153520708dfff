// Package crypto seals small secrets (the recoverable candidate passwords)
// before they are written to the database.
package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ErrNotSealed is returned by Open for an empty stored value.
var ErrNotSealed = errors.New("value is not sealed")

// ageHeader starts every binary age file.
const ageHeader = "age-encryption.org/v1\n"

// IsSealed reports whether stored looks like a value produced by Seal.
// Rows written before sealing was introduced hold the bare password.
func IsSealed(stored string) bool {
	if len(stored) < base64.StdEncoding.EncodedLen(len(ageHeader)) {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	return err == nil && bytes.HasPrefix(raw, []byte(ageHeader))
}

// Encryptor seals and opens secrets with a single age X25519 identity.
type Encryptor struct {
	identity  *age.X25519Identity
	ephemeral bool
}

// NewEncryptor parses an age identity ("AGE-SECRET-KEY-1..."). An empty key
// generates a throwaway identity; anything sealed with it is unreadable after
// a restart.
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		return &Encryptor{identity: identity, ephemeral: true}, nil
	}

	identity, err := age.ParseX25519Identity(key)
	if err != nil {
		return nil, fmt.Errorf("parsing ENCRYPTION_KEY: %w", err)
	}
	return &Encryptor{identity: identity}, nil
}

// GenerateKey returns a fresh identity string suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// Ephemeral reports whether the identity was generated at construction.
func (e *Encryptor) Ephemeral() bool {
	return e.ephemeral
}

// PublicKey returns the recipient string for this identity.
func (e *Encryptor) PublicKey() string {
	return e.identity.Recipient().String()
}

// Seal encrypts secret and returns it base64 encoded for a text column.
func (e *Encryptor) Seal(secret string) (string, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, e.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("sealing: %w", err)
	}
	if _, err := io.WriteString(w, secret); err != nil {
		return "", fmt.Errorf("sealing: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("sealing: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", ErrNotSealed
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding sealed value: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(raw), e.identity)
	if err != nil {
		return "", fmt.Errorf("opening: %w", err)
	}

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return "", fmt.Errorf("opening: %w", err)
	}
	return out.String(), nil
}
