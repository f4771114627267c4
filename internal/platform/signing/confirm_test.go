package signing

import (
	"errors"
	"testing"
	"time"
)

func newSigner() *Signer { return New("test-signing-secret-32-bytes-ok!") }

func TestSign_Verify_HappyPath(t *testing.T) {
	s := newSigner()
	tok := s.Sign("delete-comment", "17", time.Now().Add(time.Minute))
	if err := s.Verify("delete-comment", "17", tok); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	s := newSigner()
	tok := s.Sign("delete-comment", "17", time.Now().Add(-time.Minute))
	if err := s.Verify("delete-comment", "17", tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_OtherTarget(t *testing.T) {
	s := newSigner()
	tok := s.Sign("delete-comment", "17", time.Now().Add(time.Minute))
	if err := s.Verify("delete-comment", "23", tok); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerify_OtherAction(t *testing.T) {
	s := newSigner()
	tok := s.Sign("delete-comment", "17", time.Now().Add(time.Minute))
	if err := s.Verify("delete-reply", "17", tok); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	tok := newSigner().Sign("delete-comment", "17", time.Now().Add(time.Minute))
	if err := New("different-secret-32-bytes-padded!!").Verify("delete-comment", "17", tok); err == nil {
		t.Fatal("expected Verify to fail with different secret")
	}
}

func TestVerify_Malformed(t *testing.T) {
	s := newSigner()
	for _, tok := range []string{"", "abc", "123.", ".sig", "notanumber.sig"} {
		if err := s.Verify("delete-comment", "17", tok); !errors.Is(err, ErrMalformed) {
			t.Fatalf("token %q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestNew_EmptySecretIsRandom(t *testing.T) {
	a, b := New(""), New("")
	tok := a.Sign("delete-comment", "1", time.Now().Add(time.Minute))
	if err := b.Verify("delete-comment", "1", tok); err == nil {
		t.Fatal("expected independent random keys")
	}
}
