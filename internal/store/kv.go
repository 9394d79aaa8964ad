package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KV is the blob store the core components persist through.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Bucket is a namespace of keys inside the kv table.
type Bucket struct {
	s    *Store
	name string
}

// Bucket returns the namespace called name. Buckets need no creation.
func (s *Store) Bucket(name string) *Bucket {
	return &Bucket{s: s, name: name}
}

func (b *Bucket) Name() string { return b.name }

// Get returns the value under key, or ErrNotFound.
func (b *Bucket) Get(key string) ([]byte, error) {
	var value []byte
	err := b.s.db.QueryRow(`SELECT value FROM kv WHERE bucket = ? AND key = ?`, b.name, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", b.name, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", b.name, key, err)
	}
	return value, nil
}

// Put writes value under key, replacing any previous value.
func (b *Bucket) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := b.s.db.Exec(
		`INSERT INTO kv (bucket, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.name, key, value, now,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", b.name, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(key string) error {
	if _, err := b.s.db.Exec(`DELETE FROM kv WHERE bucket = ? AND key = ?`, b.name, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", b.name, key, err)
	}
	return nil
}

// Keys lists the keys in the bucket in lexical order.
func (b *Bucket) Keys() ([]string, error) {
	rows, err := b.s.db.Query(`SELECT key FROM kv WHERE bucket = ? ORDER BY key`, b.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Clear removes every key in the bucket.
func (b *Bucket) Clear() error {
	if _, err := b.s.db.Exec(`DELETE FROM kv WHERE bucket = ?`, b.name); err != nil {
		return fmt.Errorf("clear %s: %w", b.name, err)
	}
	return nil
}
