// Package storage persists schema-described entities in BadgerDB and runs
// query specifications over lazy scans of them. It is the materializing
// collaborator the evaluator pipeline leaves in charge: sequences stay
// deferred until a caller drains them.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
	"github.com/wbrown/janus-queryspec/queryspec/eval"
)

// Store keeps one entity type in a BadgerDB keyspace. Keys are the entity
// name, a separator, and the entity's UUID; values are JSON documents.
type Store[T any] struct {
	db        *badger.DB
	schema    *queryspec.Schema[T]
	key       func(T) uuid.UUID
	prefix    []byte
	collector *annotations.Collector
}

// Open opens or creates a store at path.
func Open[T any](path string, schema *queryspec.Schema[T], key func(T) uuid.UUID) (*Store[T], error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable BadgerDB logs

	return openWith[T](opts, schema, key)
}

// OpenInMemory opens a store backed by memory only, for tests and demos.
func OpenInMemory[T any](schema *queryspec.Schema[T], key func(T) uuid.UUID) (*Store[T], error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openWith[T](opts, schema, key)
}

func openWith[T any](opts badger.Options, schema *queryspec.Schema[T], key func(T) uuid.UUID) (*Store[T], error) {
	if schema == nil {
		return nil, fmt.Errorf("open store: nil schema")
	}
	if key == nil {
		return nil, fmt.Errorf("open store: nil key function")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store[T]{
		db:     db,
		schema: schema,
		key:    key,
		prefix: []byte(string(schema.Entity()) + "/"),
	}, nil
}

// SetHandler attaches an annotation handler for store events. A nil handler
// turns tracing off.
func (s *Store[T]) SetHandler(handler annotations.Handler) {
	s.collector = annotations.NewCollector(handler)
}

// Schema returns the schema the store serves.
func (s *Store[T]) Schema() *queryspec.Schema[T] { return s.schema }

// Put writes entities, keyed by their UUID.
func (s *Store[T]) Put(items ...T) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, item := range items {
			value, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode %s: %w", s.schema.Entity(), err)
			}
			if err := txn.Set(s.entityKey(s.key(item)), value); err != nil {
				return fmt.Errorf("write %s: %w", s.schema.Entity(), err)
			}
		}
		return nil
	})
}

// Get retrieves one entity by UUID. A missing key is not an error.
func (s *Store[T]) Get(id uuid.UUID) (T, bool, error) {
	var result T
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.entityKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &result); err != nil {
				return fmt.Errorf("decode %s: %w", s.schema.Entity(), err)
			}
			found = true
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		var zero T
		return zero, false, nil
	}

	return result, found, err
}

// Delete removes one entity by UUID. Deleting an absent key is a no-op.
func (s *Store[T]) Delete(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.entityKey(id)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("delete %s: %w", s.schema.Entity(), err)
		}
		return nil
	})
}

// Count counts stored entities without fetching values.
func (s *Store[T]) Count() (int, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false // keys only
	opts.Prefix = s.prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	count := 0
	for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
		count++
	}
	return count, nil
}

// Scan returns a deferred sequence over every stored entity in key order.
// Each pass opens its own read transaction.
func (s *Store[T]) Scan() eval.Sequence[T] {
	return s.scan(false)
}

func (s *Store[T]) scan(readOnly bool) eval.Sequence[T] {
	return &scanSequence[T]{store: s, readOnly: readOnly}
}

// Query evaluates a specification over a scan and returns the transformed
// sequence, still deferred. The spec's read-only hint selects how values
// are handed out of the transaction: read-only scans decode borrowed bytes
// in place, tracked scans copy them out first.
func (s *Store[T]) Query(spec *queryspec.Spec[T]) (eval.Sequence[T], error) {
	return s.QueryWithHandler(spec, nil)
}

// QueryWithHandler evaluates a specification with a traced pipeline.
func (s *Store[T]) QueryWithHandler(spec *queryspec.Spec[T], handler annotations.Handler) (eval.Sequence[T], error) {
	readOnly := spec != nil && spec.ReadOnly()
	start := time.Now()

	out, err := eval.NewPipeline[T](handler).Evaluate(s.scan(readOnly), spec)
	if err != nil {
		s.collector.AddTiming(annotations.ErrorStore, start, map[string]interface{}{
			"entity": string(s.schema.Entity()),
			"error":  err.Error(),
		})
		return nil, err
	}

	s.collector.AddTiming(annotations.StoreQuery, start, map[string]interface{}{
		"entity":    string(s.schema.Entity()),
		"read.only": readOnly,
	})
	return out, nil
}

// Find evaluates a specification and drains the result.
func (s *Store[T]) Find(spec *queryspec.Spec[T]) ([]T, error) {
	out, err := s.Query(spec)
	if err != nil {
		return nil, err
	}
	return eval.Materialize(out)
}

// Close closes the store.
func (s *Store[T]) Close() error {
	return s.db.Close()
}

func (s *Store[T]) entityKey(id uuid.UUID) []byte {
	key := make([]byte, 0, len(s.prefix)+16)
	key = append(key, s.prefix...)
	key = append(key, id[:]...)
	return key
}

// scanSequence defers a full keyspace scan. Iterator opens a fresh
// transaction per pass, so a sequence can be drained more than once.
type scanSequence[T any] struct {
	store    *Store[T]
	readOnly bool
}

func (s *scanSequence[T]) Iterator() eval.Iterator[T] {
	txn := s.store.db.NewTransaction(false)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 100
	opts.PrefetchValues = true
	opts.Prefix = s.store.prefix

	return &scanIterator[T]{
		store:    s.store,
		txn:      txn,
		it:       txn.NewIterator(opts),
		readOnly: s.readOnly,
		start:    time.Now(),
	}
}

// scanIterator walks the store's keyspace, decoding one entity per step.
type scanIterator[T any] struct {
	store    *Store[T]
	txn      *badger.Txn
	it       *badger.Iterator
	readOnly bool
	started  bool
	current  T
	count    int
	err      error
	start    time.Time
}

// Next advances to the next stored entity
func (i *scanIterator[T]) Next() bool {
	if i.err != nil {
		return false
	}

	if !i.started {
		// First call - seek to the entity prefix
		i.it.Seek(i.store.prefix)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.ValidForPrefix(i.store.prefix) {
		return false
	}

	item := i.it.Item()
	var v T
	if i.readOnly {
		i.err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		})
	} else {
		raw, err := item.ValueCopy(nil)
		if err != nil {
			i.err = err
		} else {
			i.err = json.Unmarshal(raw, &v)
		}
	}
	if i.err != nil {
		i.err = fmt.Errorf("decode %s: %w", i.store.schema.Entity(), i.err)
		return false
	}

	i.current = v
	i.count++
	return true
}

// Value returns the current entity
func (i *scanIterator[T]) Value() T { return i.current }

// Err returns the first decode failure
func (i *scanIterator[T]) Err() error { return i.err }

// Close releases the iterator and its transaction
func (i *scanIterator[T]) Close() error {
	i.it.Close()
	i.txn.Discard()

	i.store.collector.AddTiming(annotations.StoreScan, i.start, map[string]interface{}{
		"entity":     string(i.store.schema.Entity()),
		"item.count": i.count,
	})
	return nil
}
