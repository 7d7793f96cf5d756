package seal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/starford/notebase/internal/apperr"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s := New(1000)
	plain := []byte(`{"text":"I am a secret"}`)
	sealed, err := s.Seal("password123", plain)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if sealed.IV == "" || sealed.Salt == "" || sealed.Iterations != 1000 {
		t.Errorf("incomplete sealed payload: %+v", sealed)
	}
	if bytes.Contains([]byte(sealed.Cipher), []byte("secret")) {
		t.Error("ciphertext leaks plaintext")
	}
	got, err := s.Open("password123", sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("Open = %q, want %q", got, plain)
	}
}

func TestOpenWrongPassword(t *testing.T) {
	s := New(1000)
	sealed, _ := s.Seal("right", []byte("hello"))
	got, err := s.Open("wrong", sealed)
	if !errors.Is(err, apperr.ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
	if got != nil {
		t.Errorf("returned %q on failure", got)
	}
}

func TestSealFreshSaltAndIV(t *testing.T) {
	s := New(1000)
	a, _ := s.Seal("pw", []byte("same"))
	b, _ := s.Seal("pw", []byte("same"))
	if a.IV == b.IV || a.Salt == b.Salt || a.Cipher == b.Cipher {
		t.Error("seals of identical input must differ")
	}
}

func TestOpenUsesStoredIterations(t *testing.T) {
	sealed, _ := New(500).Seal("pw", []byte("x"))
	if _, err := New(2000).Open("pw", sealed); err != nil {
		t.Fatalf("Open with different default: %v", err)
	}
}

func TestSealEmptyPassword(t *testing.T) {
	if _, err := New(0).Seal("", []byte("x")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
