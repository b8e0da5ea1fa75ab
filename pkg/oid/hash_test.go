package oid

import (
	"errors"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

func TestNewHasherSizes(t *testing.T) {
	tests := []struct {
		name     string
		wantSize int
	}{
		{"sha1", 20},
		{"sha256", 32},
		{"sha384", 48},
		{"sha512", 64},
		{"sha3-256", 32},
		{"sha3-384", 48},
		{"sha3-512", 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHasher(tt.name)
			if err != nil {
				t.Fatalf("NewHasher(%q) error = %v", tt.name, err)
			}
			h.Write([]byte("dermsg"))
			if got := h.Size(); got != tt.wantSize {
				t.Errorf("Size() = %d, want %d", got, tt.wantSize)
			}
		})
	}
}

func TestNewHasherUnknown(t *testing.T) {
	_, err := NewHasher("md5")
	if !errors.Is(err, dererr.ErrUnknownAlgorithm) {
		t.Errorf("NewHasher(md5) error = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestNewHasherFreshState(t *testing.T) {
	h1, _ := NewHasher("sha256")
	h1.Write([]byte("abc"))
	sum1 := h1.Sum(nil)

	h2, _ := NewHasher("sha256")
	h2.Write([]byte("abc"))
	sum2 := h2.Sum(nil)

	if string(sum1) != string(sum2) {
		t.Errorf("two fresh hashers of the same input diverged: %x vs %x", sum1, sum2)
	}
}
