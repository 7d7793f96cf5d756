// Package seal encrypts note payloads with a key derived from a password.
//
// Keys are derived with PBKDF2-SHA256 over a random per-seal salt and the
// payload is sealed with AES-256-GCM, so a wrong password fails the
// authentication tag instead of yielding garbage.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/starford/notebase/internal/apperr"
)

const (
	// DefaultIterations is the PBKDF2 work factor used when none is configured.
	DefaultIterations = 100000
	keyLength         = 32
	saltLength        = 16
)

// Sealed is an encrypted payload with everything needed to open it except
// the password. Binary fields are base64 encoded.
type Sealed struct {
	Cipher     string
	IV         string
	Salt       string
	Iterations int
}

// Sealer seals and opens payloads.
type Sealer struct {
	iterations int
}

// New returns a Sealer using the given PBKDF2 iteration count. Values below
// 1 select DefaultIterations.
func New(iterations int) *Sealer {
	if iterations < 1 {
		iterations = DefaultIterations
	}
	return &Sealer{iterations: iterations}
}

// Seal encrypts plaintext under password.
func (s *Sealer) Seal(password string, plaintext []byte) (Sealed, error) {
	if password == "" {
		return Sealed{}, fmt.Errorf("seal: empty password: %w", apperr.ErrValidation)
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return Sealed{}, fmt.Errorf("seal: generate salt: %w", err)
	}
	gcm, err := newGCM(password, salt, s.iterations)
	if err != nil {
		return Sealed{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("seal: generate iv: %w", err)
	}
	ct := gcm.Seal(nil, nonce, plaintext, nil)
	return Sealed{
		Cipher:     base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(nonce),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Iterations: s.iterations,
	}, nil
}

// Open decrypts sealed with password. A wrong password or tampered payload
// returns apperr.ErrAuthentication.
func (s *Sealer) Open(password string, sealed Sealed) ([]byte, error) {
	ct, err1 := base64.StdEncoding.DecodeString(sealed.Cipher)
	nonce, err2 := base64.StdEncoding.DecodeString(sealed.IV)
	salt, err3 := base64.StdEncoding.DecodeString(sealed.Salt)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("seal: decode payload: %w", err)
	}
	iterations := sealed.Iterations
	if iterations < 1 {
		iterations = s.iterations
	}
	gcm, err := newGCM(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("seal: bad iv length %d: %w", len(nonce), apperr.ErrAuthentication)
	}
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, apperr.ErrAuthentication
	}
	return plain, nil
}

func newGCM(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("seal: gcm: %w", err)
	}
	return gcm, nil
}
