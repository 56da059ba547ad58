package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

const tokenBucket = "tokens"

// Store persists tokens between runs. Load returns (nil, nil) when nothing
// is stored under key.
type Store interface {
	Load(key string) (*oauth2.Token, error)
	Save(key string, token *oauth2.Token) error
	Delete(key string) error
	Close() error
}

// storedToken is the on-disk form. oauth2.Token drops its raw extras when
// marshalled, so the instance URL is kept alongside.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	InstanceURL  string    `json:"instance_url,omitempty"`
}

func toStored(t *oauth2.Token) storedToken {
	return storedToken{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
		InstanceURL:  instanceURL(t),
	}
}

func (s storedToken) token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
	if s.InstanceURL != "" {
		t = t.WithExtra(map[string]any{"instance_url": s.InstanceURL})
	}
	return t
}

// BoltStore keeps tokens in a BoltDB file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the token database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create token store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tokenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init token bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load implements Store.
func (b *BoltStore) Load(key string) (*oauth2.Token, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}
		if v := bucket.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	return st.token(), nil
}

// Save implements Store.
func (b *BoltStore) Save(key string, token *oauth2.Token) error {
	data, err := json.Marshal(toStored(token))
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return fmt.Errorf("token bucket missing")
		}
		return bucket.Put([]byte(key), data)
	})
}

// Delete implements Store.
func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokenBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Close implements Store.
func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]storedToken
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]storedToken)}
}

// Load implements Store.
func (m *MemoryStore) Load(key string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.tokens[key]
	if !ok {
		return nil, nil
	}
	return st.token(), nil
}

// Save implements Store.
func (m *MemoryStore) Save(key string, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = toStored(token)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
