package vault

import (
	"encoding/base64"
	"errors"
	"testing"
)

func testKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func TestNewRequiresFullLengthKey(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Fatal("Expected error for short master key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testKey())
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	for _, plaintext := range []string{"sk-live-abc", "", "a", "long secret with spaces and unicode: ключ"} {
		blob, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", plaintext, err)
		}
		if blob == plaintext && plaintext != "" {
			t.Fatalf("Expected ciphertext to differ from plaintext")
		}

		got, err := v.Decrypt(blob)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if got != plaintext {
			t.Errorf("Round trip mismatch: got %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptNeverReusesNonce(t *testing.T) {
	v, err := New(testKey())
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		blob, err := v.Encrypt("same plaintext")
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if seen[blob] {
			t.Fatal("Two encryptions of the same plaintext produced the same blob")
		}
		seen[blob] = true
	}
}

func TestDecryptRejectsFlippedBit(t *testing.T) {
	v, err := New(testKey())
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	blob, err := v.Encrypt("sk-live-abc")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, err := base64.RawStdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("Failed to decode blob: %v", err)
	}

	// Flip one bit in every byte position in turn; all must fail closed.
	for i := range raw {
		corrupted := make([]byte, len(raw))
		copy(corrupted, raw)
		corrupted[i] ^= 0x01

		_, err := v.Decrypt(base64.RawStdEncoding.EncodeToString(corrupted))
		if !errors.Is(err, ErrTamperedOrCorrupt) {
			t.Fatalf("Expected ErrTamperedOrCorrupt for flipped bit at %d, got %v", i, err)
		}
	}
}

func TestDecryptRejectsMalformedBlob(t *testing.T) {
	v, err := New(testKey())
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	for _, blob := range []string{"not-base64!!!", "", "YWJj"} {
		if _, err := v.Decrypt(blob); !errors.Is(err, ErrTamperedOrCorrupt) {
			t.Errorf("Decrypt(%q): expected ErrTamperedOrCorrupt, got %v", blob, err)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	v1, err := New(testKey())
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}
	v2, err := New([]byte("fedcba9876543210fedcba9876543210"))
	if err != nil {
		t.Fatalf("Failed to create vault: %v", err)
	}

	blob, err := v1.Encrypt("sk-live-abc")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := v2.Decrypt(blob); !errors.Is(err, ErrTamperedOrCorrupt) {
		t.Fatalf("Expected ErrTamperedOrCorrupt under wrong key, got %v", err)
	}
}
