package session

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealKeySize is returned by [NewSealer] for keys that are not 32 bytes.
var ErrSealKeySize = errors.New("seal key must be 32 bytes")

// Sealer encrypts encoded sessions with XChaCha20-Poly1305 before they reach a
// persistent store. A nil *Sealer passes data through unchanged.
type Sealer struct {
	aead cipher.AEAD
	ad   []byte
}

// NewSealer builds a [Sealer] from a 32-byte key. ad is bound to every ciphertext as
// associated data (typically the installation or store identifier).
func NewSealer(key []byte, ad string) (*Sealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrSealKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, ad: []byte(ad)}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	if s == nil {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, s.ad), nil
}

// Open reverses [Sealer.Seal].
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if s == nil {
		return sealed, nil
	}
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed blob too short", ErrSessionCorrupt)
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, s.ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return plain, nil
}

func marshal(sealer *Sealer, s Session) ([]byte, error) {
	data, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return sealer.Seal(data)
}

func unmarshal(sealer *Sealer, blob []byte) (Session, error) {
	data, err := sealer.Open(blob)
	if err != nil {
		return Session{}, err
	}
	s, err := Decode(data)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	return s, nil
}
