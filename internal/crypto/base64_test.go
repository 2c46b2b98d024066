package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestDecodeBase64_AllVariants(t *testing.T) {
	// 0xfb 0xf0 produces '+' and '/' in the standard alphabet.
	data := []byte{0xfb, 0xf0, 0x01, 0x42}

	tests := []struct {
		name    string
		encoded string
	}{
		{"raw url", base64.RawURLEncoding.EncodeToString(data)},
		{"url padded", base64.URLEncoding.EncodeToString(data)},
		{"raw std", base64.RawStdEncoding.EncodeToString(data)},
		{"std padded", base64.StdEncoding.EncodeToString(data)},
		{"surrounding whitespace", "  " + base64.StdEncoding.EncodeToString(data) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.encoded)
			if err != nil {
				t.Fatalf("DecodeBase64(%q) error = %v", tt.encoded, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("DecodeBase64(%q) = %x, want %x", tt.encoded, got, data)
			}
		})
	}
}

func TestDecodeBase64_Invalid(t *testing.T) {
	tests := []string{"!!!!", "abc$", "a"}
	for _, s := range tests {
		if _, err := DecodeBase64(s); err == nil {
			t.Errorf("DecodeBase64(%q) expected error", s)
		}
	}
}

func TestToBase64_RoundTrip(t *testing.T) {
	data := []byte("salt and pepper")
	got, err := DecodeBase64(ToBase64(data))
	if err != nil {
		t.Fatalf("DecodeBase64() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip = %q, want %q", got, data)
	}

	got, err = DecodeBase64(ToBase64URL(data))
	if err != nil {
		t.Fatalf("DecodeBase64() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("url round trip = %q, want %q", got, data)
	}
}

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"lower", "deadbeef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"upper", "DEADBEEF", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"empty", "", []byte{}, false},
		{"odd length", "abc", nil, true},
		{"not hex", "zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("DecodeHex(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeOptionalHex(t *testing.T) {
	empty := ""
	iv := "000102030405060708090a0b0c0d0e0f"
	bad := "xyz"

	if got, err := DecodeOptionalHex(nil); err != nil || got != nil {
		t.Errorf("DecodeOptionalHex(nil) = %v, %v, want nil, nil", got, err)
	}
	if got, err := DecodeOptionalHex(&empty); err != nil || got != nil {
		t.Errorf("DecodeOptionalHex(\"\") = %v, %v, want nil, nil", got, err)
	}
	got, err := DecodeOptionalHex(&iv)
	if err != nil {
		t.Fatalf("DecodeOptionalHex() error = %v", err)
	}
	if len(got) != AESBlockSize {
		t.Errorf("len = %d, want %d", len(got), AESBlockSize)
	}
	if _, err := DecodeOptionalHex(&bad); err == nil {
		t.Error("DecodeOptionalHex(bad) expected error")
	}
}
