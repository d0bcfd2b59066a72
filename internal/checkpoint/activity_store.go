package checkpoint

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var activityBucket = []byte("activity")

// ActivityStore persists opaque activity-tracker snapshots in a bbolt
// database, keyed by name. It knows nothing about the shape of the data it
// stores — internal/prefilter's ActivityTracker.Export/Restore own the JSON
// encoding; this type only durably stores and retrieves bytes. Grounded on
// the teacher's internal/db/checkpoint.go bbolt wiring (bucket-per-concern,
// Put/Get by key), repurposed here from checkpoint storage (now a plain
// JSON file above) to activity-tracker storage.
type ActivityStore struct {
	db *bbolt.DB
}

// OpenActivityStore opens (creating if absent) a bbolt database at path.
func OpenActivityStore(path string) (*ActivityStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open activity store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(activityBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: create activity bucket: %w", err)
	}

	return &ActivityStore{db: db}, nil
}

// Save writes data under key, replacing any previous value.
func (s *ActivityStore) Save(key string, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(activityBucket).Put([]byte(key), data)
	})
}

// Load returns the bytes stored under key, or (nil, nil) if absent.
func (s *ActivityStore) Load(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(activityBucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load activity key %q: %w", key, err)
	}
	return out, nil
}

// Close releases the underlying bbolt database handle.
func (s *ActivityStore) Close() error {
	return s.db.Close()
}
