package oid

import (
	"bytes"
	"errors"
	"testing"

	"github.com/corvid-systems/dermsg/pkg/dererr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		dotted string
		want   []byte
	}{
		{"rsaEncryption", "1.2.840.113549.1.1.1", []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01}},
		{"sha256", "2.16.840.1.101.3.4.2.1", []byte{0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01}},
		{"minimal two-arc", "1.2", []byte{0x2a}},
		{"arc0 boundary", "0.39", []byte{0x27}},
		{"large arc requiring base128", "1.2.840.10045.4.3.2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.dotted)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if tt.want != nil && !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = %x, want %x", got, tt.want)
			}
			back, err := Decode(got)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if back != tt.dotted {
				t.Errorf("Decode(Encode(%q)) = %q, want %q", tt.dotted, back, tt.dotted)
			}
		})
	}
}

func TestEncodeInvalid(t *testing.T) {
	tests := []string{"", "1", "3.1", "1.40"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := Encode(in); !errors.Is(err, dererr.ErrInvalidValue) {
				t.Errorf("Encode(%q) error = %v, want ErrInvalidValue", in, err)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, dererr.ErrInvalidValue) {
		t.Errorf("Decode(nil) error = %v, want ErrInvalidValue", err)
	}
}

func FuzzEncodeDecodeRoundTrip(f *testing.F) {
	f.Add("1.2.840.113549.1.1.1")
	f.Add("2.16.840.1.101.3.4.2.1")
	f.Add("0.0")
	f.Add("1.2")
	f.Fuzz(func(t *testing.T, dotted string) {
		der, err := Encode(dotted)
		if err != nil {
			return
		}
		if _, err := Decode(der); err != nil {
			t.Errorf("Decode(Encode(%q)) errored: %v", dotted, err)
		}
	})
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01})
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xff, 0xff})
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Decode(data)
	})
}
