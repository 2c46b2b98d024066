package crypto

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
)

// UnwrapOAEP decrypts an RSA-OAEP ciphertext with SHA-1 as both the label
// hash and the MGF1 hash.
func UnwrapOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: no private key", ErrInvalidKey)
	}
	plaintext, err := rsa.DecryptOAEP(sha1.New(), nil, priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA-OAEP: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// PrivateKeyComponents is the JSON form of an RSA private key found inside
// a wrapped envelope. All values are unsigned big-endian integers in
// base64url without padding.
type PrivateKeyComponents struct {
	N  string `json:"n"`
	E  string `json:"e"`
	D  string `json:"d"`
	P  string `json:"p"`
	Q  string `json:"q"`
	DP string `json:"dp,omitempty"`
	DQ string `json:"dq,omitempty"`
	QI string `json:"qi,omitempty"`
}

// PrivateKey builds and validates an RSA private key. The CRT values dp,
// dq and qi are recomputed from p and q; when the components carry them
// they must agree with the recomputed ones.
func (c PrivateKeyComponents) PrivateKey() (*rsa.PrivateKey, error) {
	n, err := decodeBigInt("n", c.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeExponent(c.E)
	if err != nil {
		return nil, err
	}
	d, err := decodeBigInt("d", c.D)
	if err != nil {
		return nil, err
	}
	p, err := decodeBigInt("p", c.P)
	if err != nil {
		return nil, err
	}
	q, err := decodeBigInt("q", c.Q)
	if err != nil {
		return nil, err
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: e},
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	key.Precompute()

	optional := []struct {
		name  string
		value string
		want  *big.Int
	}{
		{"dp", c.DP, key.Precomputed.Dp},
		{"dq", c.DQ, key.Precomputed.Dq},
		{"qi", c.QI, key.Precomputed.Qinv},
	}
	for _, o := range optional {
		if o.value == "" || o.want == nil {
			continue
		}
		got, err := decodeBigInt(o.name, o.value)
		if err != nil {
			return nil, err
		}
		if got.Cmp(o.want) != 0 {
			return nil, fmt.Errorf("%w: %s does not match p and q", ErrInvalidKey, o.name)
		}
	}

	return key, nil
}

// PrivateKeyComponentsOf returns the JSON components of priv. It is the
// inverse of [PrivateKeyComponents.PrivateKey].
func PrivateKeyComponentsOf(priv *rsa.PrivateKey) PrivateKeyComponents {
	priv.Precompute()
	return PrivateKeyComponents{
		N:  ToBase64URL(priv.N.Bytes()),
		E:  ToBase64URL(big.NewInt(int64(priv.E)).Bytes()),
		D:  ToBase64URL(priv.D.Bytes()),
		P:  ToBase64URL(priv.Primes[0].Bytes()),
		Q:  ToBase64URL(priv.Primes[1].Bytes()),
		DP: ToBase64URL(priv.Precomputed.Dp.Bytes()),
		DQ: ToBase64URL(priv.Precomputed.Dq.Bytes()),
		QI: ToBase64URL(priv.Precomputed.Qinv.Bytes()),
	}
}

// PublicKeyJWK is the JSON public key form used for wrapped envelopes and
// for users' public signing keys. Only n and e are interpreted.
type PublicKeyJWK struct {
	Alg    string   `json:"alg,omitempty"`
	E      string   `json:"e"`
	Ext    bool     `json:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
	Kty    string   `json:"kty,omitempty"`
	N      string   `json:"n"`
}

// PublicKey builds the RSA public key.
func (j PublicKeyJWK) PublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "" && !strings.EqualFold(j.Kty, "RSA") {
		return nil, fmt.Errorf("%w: key type %q", ErrInvalidKey, j.Kty)
	}
	n, err := decodeBigInt("n", j.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeExponent(j.E)
	if err != nil {
		return nil, err
	}
	if n.Sign() <= 0 || n.BitLen() < 512 {
		return nil, fmt.Errorf("%w: modulus too small", ErrInvalidKey)
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

// PublicKeyJWKOf returns the JSON form of pub.
func PublicKeyJWKOf(pub *rsa.PublicKey) PublicKeyJWK {
	return PublicKeyJWK{
		Alg: "RSA-OAEP-256",
		E:   ToBase64URL(big.NewInt(int64(pub.E)).Bytes()),
		Kty: "RSA",
		N:   ToBase64URL(pub.N.Bytes()),
	}
}

// ParsePublicKey parses an RSA public key given either as PEM (PKIX
// "PUBLIC KEY" or PKCS#1 "RSA PUBLIC KEY") or as a JSON object with n and e.
func ParsePublicKey(data string) (*rsa.PublicKey, error) {
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return parsePublicKeyPEM([]byte(trimmed))
	}

	var jwk PublicKeyJWK
	if err := json.Unmarshal([]byte(trimmed), &jwk); err != nil {
		return nil, fmt.Errorf("%w: public key is neither PEM nor JSON: %v", ErrInvalidKey, err)
	}
	return jwk.PublicKey()
}

func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return pub, nil
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA public key (%T)", ErrInvalidKey, parsed)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
}

func decodeBigInt(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidKey, field)
	}
	b, err := DecodeBase64(s)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return new(big.Int).SetBytes(b), nil
}

func decodeExponent(s string) (int, error) {
	e, err := decodeBigInt("e", s)
	if err != nil {
		return 0, err
	}
	if !e.IsInt64() || e.Int64() < MinRSAPublicExponent || e.Int64() > 1<<31-1 {
		return 0, fmt.Errorf("%w: public exponent out of range", ErrInvalidKey)
	}
	return int(e.Int64()), nil
}
