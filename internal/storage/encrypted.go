package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/and161185/feedlog/internal/crypto/clientcrypto"
)

// encMagic prefixes every encrypted blob: magic || salt || nonce || ciphertext.
var encMagic = []byte("FLE1")

// ErrNotEncrypted is returned when a stored blob lacks the encryption header.
var ErrNotEncrypted = errors.New("blob is not encrypted")

// Encrypted seals values with a passphrase-derived key before handing them to
// the wrapped Storage. The storage key is bound as associated data, so a blob
// copied under another key fails to open.
type Encrypted struct {
	next       Storage
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	kek  []byte
}

var _ Storage = (*Encrypted)(nil)

// NewEncrypted wraps next. The Argon2id derivation runs lazily, once per salt.
func NewEncrypted(next Storage, passphrase string) *Encrypted {
	return &Encrypted{next: next, passphrase: []byte(passphrase)}
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := e.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	hdr := len(encMagic) + clientcrypto.SaltLen
	if len(blob) < hdr || !bytes.Equal(blob[:len(encMagic)], encMagic) {
		return nil, ErrNotEncrypted
	}
	salt := blob[len(encMagic):hdr]
	bk, err := e.blobKey(salt, key)
	if err != nil {
		return nil, err
	}
	pt, err := clientcrypto.Open(bk, []byte(key), blob[hdr:])
	if err != nil {
		return nil, fmt.Errorf("decrypt %q: %w", key, err)
	}
	return pt, nil
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	e.mu.Lock()
	salt := e.salt
	e.mu.Unlock()
	if salt == nil {
		var err error
		if salt, err = clientcrypto.Rand(clientcrypto.SaltLen); err != nil {
			return err
		}
	}
	bk, err := e.blobKey(salt, key)
	if err != nil {
		return err
	}
	sealed, err := clientcrypto.Seal(bk, []byte(key), value)
	if err != nil {
		return fmt.Errorf("encrypt %q: %w", key, err)
	}
	out := make([]byte, 0, len(encMagic)+len(salt)+len(sealed))
	out = append(out, encMagic...)
	out = append(out, salt...)
	out = append(out, sealed...)
	return e.next.Set(ctx, key, out)
}

// blobKey returns the subkey for name, deriving (and caching) the master key when salt changes.
func (e *Encrypted) blobKey(salt []byte, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.kek == nil || !bytes.Equal(e.salt, salt) {
		e.kek = clientcrypto.DeriveKEK(e.passphrase, salt)
		e.salt = append([]byte(nil), salt...)
	}
	return clientcrypto.DeriveBlobKey(e.kek, []byte(name))
}
