// Package vault decrypts stored refresh secrets and exchanges them for
// short-lived access tokens. Secrets are sealed with AES-256-GCM; the
// nonce is prepended to the ciphertext.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// Exchanger is the identity-provider side of the vault (see
// google.OAuthExchanger).
type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (string, time.Duration, error)
}

type Vault struct {
	aead     cipher.AEAD
	exch     Exchanger
	cache    domain.TokenCache // optional
	cacheTTL time.Duration
}

// New builds a Vault from a 32-byte key. cache may be nil; when present,
// exchanged tokens are reused across invocations until their TTL lapses.
func New(key []byte, exch Exchanger, cache domain.TokenCache, cacheTTL time.Duration) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead, exch: exch, cache: cache, cacheTTL: cacheTTL}, nil
}

// Seal encrypts a refresh secret for storage. The write side of the product
// (OAuth connect flow) uses this; the poller only ever opens.
func (v *Vault) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := crand.Read(nonce); err != nil {
		return nil, err
	}
	return v.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// open decrypts a stored secret. Any failure here means the blob is
// unusable regardless of cause (truncation, key mismatch, bit rot), which
// maps to the unrecoverable ErrCiphertextCorrupt kind.
func (v *Vault) open(blob []byte) (string, error) {
	if len(blob) < v.aead.NonceSize() {
		return "", fmt.Errorf("%w: blob shorter than nonce", domain.ErrCiphertextCorrupt)
	}
	nonce, ct := blob[:v.aead.NonceSize()], blob[v.aead.NonceSize():]
	pt, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCiphertextCorrupt, err)
	}
	return string(pt), nil
}

// AccessToken implements domain.CredentialVault. Cache first, then decrypt
// and exchange. Cache failures are logged and ignored; they only cost an
// extra exchange.
func (v *Vault) AccessToken(ctx context.Context, orgID int64, encryptedSecret []byte) (string, error) {
	if v.cache != nil {
		if tok, ok, err := v.cache.Get(ctx, orgID); err != nil {
			log.Warn().Err(err).Int64("org", orgID).Msg("token cache read failed")
		} else if ok {
			return tok, nil
		}
	}

	secret, err := v.open(encryptedSecret)
	if err != nil {
		return "", err
	}

	tok, expiry, err := v.exch.Exchange(ctx, secret)
	if err != nil {
		return "", err
	}

	if v.cache != nil {
		ttl := v.cacheTTL
		// Never cache past the provider's own expiry; leave a minute of slack.
		if expiry > time.Minute && expiry-time.Minute < ttl {
			ttl = expiry - time.Minute
		}
		if ttl > 0 {
			if err := v.cache.Set(ctx, orgID, tok, ttl); err != nil {
				log.Warn().Err(err).Int64("org", orgID).Msg("token cache write failed")
			}
		}
	}
	return tok, nil
}
