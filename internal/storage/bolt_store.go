package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Two buckets: nonces maps nonce to its expiry, expiries indexes the same
// entries by expiry||nonce so a sweep only visits what has already expired.
const (
	nonceBucket  = "direct_nonces"
	expiryBucket = "direct_nonce_expiries"
	unixBytes    = 8
)

type boltStore struct {
	db         *bolt.DB
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  atomic.Int64
	now        func() time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create nonce store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open nonce store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{nonceBucket, expiryBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &boltStore{db: db, ttl: opts.NonceTTL, sweepEvery: opts.CleanupInterval, now: time.Now}
	s.lastSweep.Store(s.now().Unix())
	return s, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenNonce reports whether nonce was consumed and has not expired yet.
func (b *boltStore) SeenNonce(nonce string) (bool, error) {
	if nonce == "" {
		return false, ErrEmptyNonce
	}
	now := b.now().Unix()
	var seen bool
	err := b.db.View(func(tx *bolt.Tx) error {
		exp, ok := decodeUnix(tx.Bucket([]byte(nonceBucket)).Get([]byte(nonce)))
		seen = ok && exp > now
		return nil
	})
	return seen, err
}

// MarkNonce records nonce until the TTL elapses.
func (b *boltStore) MarkNonce(nonce string) error {
	_, err := b.Consume(nonce)
	return err
}

// Consume records nonce and reports whether it was unseen. Expired entries
// are swept in the same transaction once per cleanup interval.
func (b *boltStore) Consume(nonce string) (bool, error) {
	if nonce == "" {
		return false, ErrEmptyNonce
	}
	now := b.now()
	sweeping := now.Unix()-b.lastSweep.Load() >= int64(b.sweepEvery/time.Second)

	fresh := false
	err := b.db.Update(func(tx *bolt.Tx) error {
		nonces := tx.Bucket([]byte(nonceBucket))
		expiries := tx.Bucket([]byte(expiryBucket))
		if sweeping {
			if err := sweepExpired(nonces, expiries, now.Unix()); err != nil {
				return fmt.Errorf("sweep expired nonces: %w", err)
			}
		}

		key := []byte(nonce)
		if exp, ok := decodeUnix(nonces.Get(key)); ok {
			if exp > now.Unix() {
				return nil
			}
			if err := expiries.Delete(expiryKey(exp, nonce)); err != nil {
				return err
			}
		}
		fresh = true
		exp := now.Add(b.ttl).Unix()
		if err := nonces.Put(key, encodeUnix(exp)); err != nil {
			return err
		}
		return expiries.Put(expiryKey(exp, nonce), []byte{})
	})
	if err != nil {
		return false, err
	}
	if sweeping {
		b.lastSweep.Store(now.Unix())
	}
	return fresh, nil
}

// sweepExpired deletes every nonce whose expiry is at or before now. The
// expiry index is ordered, so it stops at the first live entry.
func sweepExpired(nonces, expiries *bolt.Bucket, now int64) error {
	limit := encodeUnix(now)
	c := expiries.Cursor()
	for k, _ := c.First(); k != nil && bytes.Compare(k[:unixBytes], limit) <= 0; k, _ = c.First() {
		if err := nonces.Delete(k[unixBytes:]); err != nil {
			return err
		}
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

func expiryKey(exp int64, nonce string) []byte {
	return append(encodeUnix(exp), nonce...)
}

func encodeUnix(sec int64) []byte {
	buf := make([]byte, unixBytes)
	binary.BigEndian.PutUint64(buf, uint64(sec))
	return buf
}

func decodeUnix(v []byte) (int64, bool) {
	if len(v) != unixBytes {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(v)), true
}
