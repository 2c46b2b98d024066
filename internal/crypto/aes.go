package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// DecryptCBC decrypts AES-256-CBC ciphertext and removes PKCS#7 padding.
// A nil or empty iv chains from an all-zero block.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, chain, err := newCBC(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidCiphertextSize, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, chain).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// EncryptCBC pads plaintext with PKCS#7 and encrypts it with AES-256-CBC.
// The iv follows the same rules as for [DecryptCBC].
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, chain, err := newCBC(key, iv)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, chain).CryptBlocks(ciphertext, padded)

	return ciphertext, nil
}

func newCBC(key, iv []byte) (cipher.Block, []byte, error) {
	if len(key) != AESKeySize {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}

	chain := make([]byte, aes.BlockSize)
	if len(iv) > 0 {
		if len(iv) != aes.BlockSize {
			return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidIVSize, len(iv), aes.BlockSize)
		}
		copy(chain, iv)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return block, chain, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: padded length %d", ErrInvalidPadding, len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > blockSize {
		return nil, fmt.Errorf("%w: pad value %d", ErrInvalidPadding, padLen)
	}
	for i := len(data) - padLen; i < len(data); i++ {
		if data[i] != byte(padLen) {
			return nil, fmt.Errorf("%w: mismatch at byte %d", ErrInvalidPadding, i)
		}
	}
	return data[:len(data)-padLen], nil
}
