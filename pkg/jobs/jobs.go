// Package jobs persists episode recording jobs in an embedded store and
// feeds newly submitted work to the watcher through a change feed.
package jobs

import (
	"context"
	"errors"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/naelab/papercast/pkg/program"
)

// ErrNotFound is returned when no episode exists under the given ID.
var ErrNotFound = errors.New("jobs: episode not found")

// Status is an episode job's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Episode is one recording job and its outcome.
type Episode struct {
	ID      string          `msgpack:"id"`
	Title   string          `msgpack:"title"`
	Options program.Options `msgpack:"options"`
	Status  Status          `msgpack:"status"`

	// ContentPath and ScriptPath are the stored paths of the published
	// audio and script transcript, set when the job completes.
	ContentPath string `msgpack:"content_path"`
	ScriptPath  string `msgpack:"script_path"`

	// Error records why the job failed.
	Error string `msgpack:"error"`

	CreatedAt time.Time `msgpack:"created_at"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

const keyPrefix = "episode/"

// Options configures the store.
type Options struct {
	// Dir is the directory for the store's data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs the store without disk persistence. Useful for tests.
	InMemory bool

	// Logger overrides the engine logger. If nil, engine output is
	// silenced.
	Logger badger.Logger
}

// Store is the badger-backed episode store. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("jobs: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(nil)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the episode, assigning an ID, pending status, and timestamps
// when unset. Returns the episode's ID.
func (s *Store) Put(_ context.Context, ep *Episode) (string, error) {
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Status == "" {
		ep.Status = StatusPending
	}
	now := time.Now().UTC()
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	ep.UpdatedAt = now

	data, err := msgpack.Marshal(ep)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+ep.ID), data)
	})
	if err != nil {
		return "", err
	}
	return ep.ID, nil
}

// Get returns the episode with the given ID.
func (s *Store) Get(_ context.Context, id string) (*Episode, error) {
	var ep Episode
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &ep)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// Update applies fn to the stored episode under a write transaction.
func (s *Store) Update(_ context.Context, id string, fn func(*Episode) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + id)
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var ep Episode
		if err := item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &ep)
		}); err != nil {
			return err
		}
		if err := fn(&ep); err != nil {
			return err
		}
		ep.UpdatedAt = time.Now().UTC()
		data, err := msgpack.Marshal(&ep)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// SetStatus transitions the episode's status. The message lands in the
// episode's Error field for StatusFailed and is ignored otherwise.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, message string) error {
	return s.Update(ctx, id, func(ep *Episode) error {
		ep.Status = status
		if status == StatusFailed {
			ep.Error = message
		}
		return nil
	})
}

// List returns every stored episode, oldest first.
func (s *Store) List(_ context.Context) ([]*Episode, error) {
	var out []*Episode
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(iterOpts.Prefix); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
			var ep Episode
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &ep)
			}); err != nil {
				return err
			}
			out = append(out, &ep)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
