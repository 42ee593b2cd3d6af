package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealerInfo = "credential-bundle/v1"

// ErrUnseal is returned when sealed data fails authentication.
var ErrUnseal = errors.New("unable to unseal record")

// Sealer encrypts records with XChaCha20-Poly1305 under a key derived from
// the master secret.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("[NewSealer] master key is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(sealerInfo)), key); err != nil {
		return nil, errors.Wrap(err, "[NewSealer] derive key")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSealer] chacha20poly1305.NewX")
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext. The associated data is authenticated but
// not stored.
func (s *Sealer) Seal(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "[Sealer.Seal] rand.Read")
	}
	return s.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

func (s *Sealer) Open(sealed, associatedData []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, errors.Wrap(ErrUnseal, "[Sealer.Open] record too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, errors.Wrap(ErrUnseal, "[Sealer.Open] "+err.Error())
	}
	return plaintext, nil
}
