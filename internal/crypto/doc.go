// Package crypto provides the cryptographic primitives used by the stashcat
// end-to-end encryption scheme. Everything in this package is stateless:
// callers pass keys in and get plaintext or errors out.
//
// # Algorithm Suite
//
//   - AES-256-CBC with PKCS#7 padding: encrypts message text, uploaded files
//     and the wrapped private keys themselves.
//
//   - RSA-OAEP (SHA-1, MGF1-SHA-1): wraps each chat key for every chat member
//     and wraps the key-encryption key (KEK) that protects the signing key.
//
//   - PBKDF2-HMAC (SHA-256 unless the envelope names another PRF): stretches
//     the user's passphrase into the AES key that protects the encryption
//     private key.
//
//   - Raw RSA over SHA-256: message integrity tags. The tag is the unpadded
//     RSA private operation applied to the SHA-256 digest of the signed
//     content, so verification is the public operation followed by an
//     integer comparison with the digest.
//
// # Private Key Envelopes
//
// The server returns private keys in one of two shapes, see [ParseEnvelope]:
//
//   - PEM: {"private": "<passphrase protected PEM>"}. Both traditional
//     OpenSSL encryption (Proc-Type/DEK-Info headers) and PKCS#8
//     ENCRYPTED PRIVATE KEY blocks are accepted.
//
//   - Wrapped: {"iv", "ciphertext", "key_derivation_properties", "encryptedKEK"}.
//     The ciphertext decrypts to a JSON object of base64url RSA components.
//
// # IV Handling
//
// A nil IV passed to [DecryptCBC] means the sender supplied none. The
// cipher then chains from an all-zero block, matching OpenSSL's treatment
// of a NULL IV. Callers must never invent an IV of their own.
//
// # Encoding
//
// Binary protocol values arrive as hex (message text, IVs, verification
// tags) or base64 in any of its four common variants (keys, salts). Use
// [DecodeHex] and [DecodeBase64] respectively.
package crypto
