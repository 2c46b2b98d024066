package crypto

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"testing"
)

func TestUnwrapOAEP(t *testing.T) {
	priv, other := testKeys(t)
	chatKey := randomBytes(t, AESKeySize)
	wrapped := wrapOAEP(t, &priv.PublicKey, chatKey)

	got, err := UnwrapOAEP(priv, wrapped)
	if err != nil {
		t.Fatalf("UnwrapOAEP() error = %v", err)
	}
	if !bytes.Equal(got, chatKey) {
		t.Errorf("UnwrapOAEP() = %x, want %x", got, chatKey)
	}

	if _, err := UnwrapOAEP(other, wrapped); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("UnwrapOAEP(wrong key) error = %v, want %v", err, ErrDecryptionFailed)
	}
	if _, err := UnwrapOAEP(nil, wrapped); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("UnwrapOAEP(nil) error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestPrivateKeyComponents_RoundTrip(t *testing.T) {
	priv, _ := testKeys(t)

	data, err := json.Marshal(PrivateKeyComponentsOf(priv))
	if err != nil {
		t.Fatal(err)
	}
	var c PrivateKeyComponents
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatal(err)
	}

	got, err := c.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey() error = %v", err)
	}
	if got.N.Cmp(priv.N) != 0 || got.D.Cmp(priv.D) != 0 || got.E != priv.E {
		t.Error("recovered key differs from original")
	}
}

func TestPrivateKeyComponents_Invalid(t *testing.T) {
	priv, other := testKeys(t)
	good := PrivateKeyComponentsOf(priv)
	foreign := PrivateKeyComponentsOf(other)

	tests := []struct {
		name   string
		mutate func(c *PrivateKeyComponents)
	}{
		{"missing n", func(c *PrivateKeyComponents) { c.N = "" }},
		{"missing d", func(c *PrivateKeyComponents) { c.D = "" }},
		{"bad base64", func(c *PrivateKeyComponents) { c.P = "***" }},
		{"foreign prime", func(c *PrivateKeyComponents) { c.P = foreign.P }},
		{"foreign d", func(c *PrivateKeyComponents) { c.D = foreign.D }},
		{"inconsistent dp", func(c *PrivateKeyComponents) { c.DP = foreign.DP }},
		{"exponent one", func(c *PrivateKeyComponents) { c.E = ToBase64URL([]byte{1}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := good
			tt.mutate(&c)
			if _, err := c.PrivateKey(); err == nil {
				t.Error("PrivateKey() expected error")
			}
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	priv, _ := testKeys(t)
	pub := &priv.PublicKey

	pkix, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	jwk, err := json.Marshal(PublicKeyJWKOf(pub))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   string
	}{
		{"pkix pem", string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix}))},
		{"pkcs1 pem", string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(pub)}))},
		{"jwk", string(jwk)},
		{"jwk minimal", `{"n":"` + ToBase64URL(pub.N.Bytes()) + `","e":"AQAB"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePublicKey(tt.in)
			if err != nil {
				t.Fatalf("ParsePublicKey() error = %v", err)
			}
			if !got.Equal(pub) {
				t.Error("ParsePublicKey() returned a different key")
			}
		})
	}
}

func TestParsePublicKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"garbage", "not a key"},
		{"bad pem", "-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----"},
		{"wrong pem type", string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))},
		{"jwk missing n", `{"e":"AQAB"}`},
		{"jwk small modulus", `{"n":"AQAB","e":"AQAB"}`},
		{"jwk wrong kty", `{"kty":"EC","n":"AQAB","e":"AQAB"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePublicKey(tt.in); err == nil {
				t.Error("ParsePublicKey() expected error")
			}
		})
	}
}

func TestPublicKeyJWKOf(t *testing.T) {
	priv, _ := testKeys(t)
	j := PublicKeyJWKOf(&priv.PublicKey)
	if j.E != "AQAB" {
		t.Errorf("E = %q, want AQAB", j.E)
	}
	got, err := j.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey() error = %v", err)
	}
	if !got.Equal(&priv.PublicKey) {
		t.Error("PublicKey() mismatch")
	}
}
