package bridge

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
)

// Crypto exposes md5 and AES primitives to the sandbox. Every operation
// fails closed to an empty string; no error ever crosses into the
// sandbox.
type Crypto struct {
	log *logging.Logger
}

// NewCrypto creates the crypto bridge capability.
func NewCrypto(log *logging.Logger) *Crypto {
	return &Crypto{log: log.Named("bridge.crypto")}
}

// Bind builds the sandbox-facing object.
func (c *Crypto) Bind(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	obj.Set("md5", c.MD5)
	obj.Set("aesEncrypt", c.AESEncrypt)
	obj.Set("aesDecrypt", c.AESDecrypt)
	return obj
}

// MD5 returns the lowercase hex digest of text.
func (c *Crypto) MD5(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// AESEncrypt encrypts text with the given mode/padding (the
// "AES/CBC/PKCS5Padding" transformation family) and returns lowercase
// hex ciphertext. Key bytes are used directly; for CBC the key doubles
// as IV. Returns "" on any error.
func (c *Crypto) AESEncrypt(text, key, mode, padding string) string {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		c.log.Warn("encrypt failed", zap.String("transform", transform(mode, padding)), zap.Error(err))
		return ""
	}

	data, ok := pad([]byte(text), padding)
	if !ok {
		c.log.Warn("encrypt failed: unknown padding", zap.String("transform", transform(mode, padding)))
		return ""
	}

	out := make([]byte, len(data))
	switch strings.ToUpper(mode) {
	case "CBC":
		cipher.NewCBCEncrypter(block, []byte(key)[:aes.BlockSize]).CryptBlocks(out, data)
	case "ECB":
		for i := 0; i < len(data); i += aes.BlockSize {
			block.Encrypt(out[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
		}
	default:
		c.log.Warn("encrypt failed: unknown mode", zap.String("mode", mode))
		return ""
	}

	return hex.EncodeToString(out)
}

// AESDecrypt reverses AESEncrypt, taking hex ciphertext and returning
// plaintext. Returns "" on any error (bad hex, wrong key length,
// corrupt padding).
func (c *Crypto) AESDecrypt(hexCiphertext, key, mode, padding string) string {
	data, err := hex.DecodeString(strings.TrimSpace(hexCiphertext))
	if err != nil {
		c.log.Warn("decrypt failed: bad hex", zap.Error(err))
		return ""
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		c.log.Warn("decrypt failed: ciphertext not block aligned", zap.Int("len", len(data)))
		return ""
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		c.log.Warn("decrypt failed", zap.String("transform", transform(mode, padding)), zap.Error(err))
		return ""
	}

	out := make([]byte, len(data))
	switch strings.ToUpper(mode) {
	case "CBC":
		cipher.NewCBCDecrypter(block, []byte(key)[:aes.BlockSize]).CryptBlocks(out, data)
	case "ECB":
		for i := 0; i < len(data); i += aes.BlockSize {
			block.Decrypt(out[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
		}
	default:
		c.log.Warn("decrypt failed: unknown mode", zap.String("mode", mode))
		return ""
	}

	plain, ok := unpad(out, padding)
	if !ok {
		c.log.Warn("decrypt failed: corrupt padding", zap.String("transform", transform(mode, padding)))
		return ""
	}
	return string(plain)
}

func transform(mode, padding string) string {
	return "AES/" + strings.ToUpper(mode) + "/" + padding
}

func pad(data []byte, padding string) ([]byte, bool) {
	switch strings.ToLower(padding) {
	case "pkcs5padding", "pkcs7padding":
		n := aes.BlockSize - len(data)%aes.BlockSize
		return append(data, bytes.Repeat([]byte{byte(n)}, n)...), true
	case "nopadding":
		return data, len(data)%aes.BlockSize == 0
	default:
		return nil, false
	}
}

func unpad(data []byte, padding string) ([]byte, bool) {
	switch strings.ToLower(padding) {
	case "pkcs5padding", "pkcs7padding":
		if len(data) == 0 {
			return nil, false
		}
		n := int(data[len(data)-1])
		if n == 0 || n > aes.BlockSize || n > len(data) {
			return nil, false
		}
		for _, b := range data[len(data)-n:] {
			if int(b) != n {
				return nil, false
			}
		}
		return data[:len(data)-n], true
	case "nopadding":
		return data, true
	default:
		return nil, false
	}
}
