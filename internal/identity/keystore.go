package identity

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned for an unknown principal or a wrong API key.
var ErrBadCredentials = errors.New("invalid principal or api key")

// KeyStore maps principals to bcrypt hashes of their API keys.
type KeyStore struct {
	mu     sync.RWMutex
	hashes map[string][]byte
}

// Credential is one configured principal and the bcrypt hash of its API key.
// Principals are matched case-sensitively.
type Credential struct {
	Principal string `mapstructure:"principal" json:"principal" yaml:"principal"`
	Hash      string `mapstructure:"hash" json:"hash" yaml:"hash"`
}

// NewKeyStore creates a KeyStore from configured credentials. Entries with an
// empty principal or hash are rejected; a repeated principal keeps the last hash.
func NewKeyStore(creds []Credential) (*KeyStore, error) {
	ks := &KeyStore{hashes: make(map[string][]byte, len(creds))}
	for i, c := range creds {
		if c.Principal == "" || c.Hash == "" {
			return nil, fmt.Errorf("credential %d: principal and hash are required", i)
		}
		ks.hashes[c.Principal] = []byte(c.Hash)
	}
	return ks, nil
}

// Add hashes apiKey and stores it for principal, replacing any previous key.
func (ks *KeyStore) Add(principal, apiKey string) error {
	if principal == "" {
		return fmt.Errorf("principal is required")
	}
	hash, err := HashKey(apiKey)
	if err != nil {
		return err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.hashes[principal] = []byte(hash)
	return nil
}

// Authenticate reports whether apiKey is the key registered for principal.
func (ks *KeyStore) Authenticate(principal, apiKey string) error {
	ks.mu.RLock()
	hash, ok := ks.hashes[principal]
	ks.mu.RUnlock()
	if !ok {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(apiKey)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// Len returns the number of registered principals.
func (ks *KeyStore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.hashes)
}

// HashKey returns the bcrypt hash of apiKey for use in configuration.
func HashKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}
