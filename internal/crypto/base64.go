package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// ToBase64URL encodes bytes to URL-safe base64 without padding.
func ToBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// ToBase64 encodes bytes to standard base64 with padding, the form the
// server uses for salts, IVs and wrapped keys.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes base64 in any of the URL-safe or standard
// alphabets, with or without padding. Surrounding whitespace is ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.RawStdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	return base64.StdEncoding.DecodeString(s)
}

// DecodeHex decodes a hex string, accepting either letter case.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(s))
}

// DecodeOptionalHex decodes s when it is non-nil and non-empty and returns
// nil otherwise. It is used for optional IV fields.
func DecodeOptionalHex(s *string) ([]byte, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	return DecodeHex(*s)
}
