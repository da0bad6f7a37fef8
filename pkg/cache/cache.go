package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Cache key namespaces. Every stored key is "<namespace>:<id>".
const (
	NamespaceAISummary = "ai_summary"
	NamespaceAIActions = "ai_actions"
	NamespaceGraphAPI  = "graph_api"
)

// Store is a TTL key/value store backed by Badger. Values are JSON-encoded.
// Expired entries are never returned; Badger drops them on its own, no
// external sweeper needed.
type Store struct {
	db       *badger.DB
	onLookup func(namespace, result string)
}

// OnLookup registers a hook called after every Get with the namespace
// and "hit" or "miss". Used to feed cache metrics.
func (s *Store) OnLookup(hook func(namespace, result string)) {
	s.onLookup = hook
}

func (s *Store) recordLookup(namespace string, hit bool) {
	if s.onLookup == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.onLookup(namespace, result)
}

// Open opens (or creates) the cache at dir. With inMemory set the store
// keeps everything in RAM, which is what tests use.
func Open(dir string, inMemory bool) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{}).
		WithInMemory(inMemory)
	if inMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Set stores value under namespace:id with the given TTL.
func (s *Store) Set(namespace, id string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(Key(namespace, id)), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get loads namespace:id into out. The second return is false on a miss
// (including entries past their TTL).
func (s *Store) Get(namespace, id string, out interface{}) (bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key(namespace, id)))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.recordLookup(namespace, false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cache value: %w", err)
	}
	s.recordLookup(namespace, true)
	return true, nil
}

// Delete removes a single entry. Deleting an absent key is not an error.
func (s *Store) Delete(namespace, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(Key(namespace, id)))
	})
}

// DeleteNamespace removes every entry under the namespace prefix.
func (s *Store) DeleteNamespace(namespace string) (int, error) {
	prefix := []byte(namespace + ":")
	var keys [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// Key builds the namespaced cache key.
func Key(namespace, id string) string {
	return namespace + ":" + id
}

// ContentHash returns the stable digest of (subject, body) used to key AI
// responses. Repeated enrichment of the same content reuses prior output.
func ContentHash(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + ":" + body))
	return hex.EncodeToString(sum[:])
}

// HashKey digests an arbitrary string (e.g. a full request URL) into a
// fixed-length cache id.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// badgerLogger routes Badger's internal logging through the standard logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[Cache] ERROR "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("[Cache] WARN "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {}

func (badgerLogger) Debugf(format string, args ...interface{}) {}
