package audit

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
)

// EnvelopeKey is the only context key of a sealed record.
const EnvelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for sealing new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when opening fails with ActiveKey,
	// so keys can be rotated without losing old records.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.AuditSink
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the record context with
// AES-GCM. Routing fields (session, states, trigger, time) stay in the clear.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.AuditSink) ports.AuditSink {
		return &encryptionMiddleware{next: next, config: config}
	}
}

func (m *encryptionMiddleware) Record(ctx context.Context, rec domain.AuditRecord) error {
	if len(rec.Context) == 0 {
		return m.next.Record(ctx, rec)
	}

	plainText, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal audit context: %w", err)
	}
	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt audit context: %w", err)
	}

	rec.Context = map[string]any{
		EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Record(ctx, rec)
}

// Open reverses the encryption middleware on a stored record.
func Open(rec domain.AuditRecord, config EncryptionConfig) (domain.AuditRecord, error) {
	sealed, ok := rec.Context[EnvelopeKey].(string)
	if !ok {
		return rec, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return rec, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plainText, err := decryptWithRotation(ciphertext, config.ActiveKey, config.FallbackKeys)
	if err != nil {
		return rec, fmt.Errorf("failed to decrypt audit context: %w", err)
	}

	var ctx map[string]any
	if err := json.Unmarshal(plainText, &ctx); err != nil {
		return rec, fmt.Errorf("failed to unmarshal audit context: %w", err)
	}
	rec.Context = ctx
	return rec, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
