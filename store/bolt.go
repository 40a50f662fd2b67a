package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltBucket = "memex"

	// StoreKey is the fixed key the serialized store lives under.
	StoreKey = "vector_db"
)

// BoltPersister stores the blob in a bbolt file: one bucket, one key,
// whole-value writes.
type BoltPersister struct {
	db  *bolt.DB
	key []byte
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltPersister, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltPersister{db: db, key: []byte(StoreKey)}, nil
}

func (b *BoltPersister) Save(blob []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put(b.key, blob)
	})
}

func (b *BoltPersister) Load() ([]byte, bool, error) {
	var blob []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(boltBucket)).Get(b.key); v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return blob, blob != nil, nil
}

// Close closes the underlying bolt file.
func (b *BoltPersister) Close() error {
	return b.db.Close()
}
