package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/loadwise/cutover/pkg/types"
)

var bucketRollouts = []byte("rollouts")

// Outcome is the final disposition of a rollout.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
)

// Step is one state the rollout passed through.
type Step struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

// Record is the persisted account of one rollout. The orchestrator saves it
// after every state transition, so a record whose outcome is still
// in_progress marks a run that was killed mid-flight.
type Record struct {
	ID         string           `json:"id"`
	Service    string           `json:"service"`
	Generation types.Generation `json:"generation"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	Error      string           `json:"error,omitempty"`
	Steps      []Step           `json:"steps"`
}

// NewRecord creates an in-progress record for a rollout that is starting.
func NewRecord(service string, gen types.Generation) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Service:    service,
		Generation: gen,
		StartedAt:  time.Now().UTC(),
		Outcome:    OutcomeInProgress,
	}
}

// AddStep appends a state transition with the current time.
func (r *Record) AddStep(state string) {
	r.Steps = append(r.Steps, Step{State: state, At: time.Now().UTC()})
}

// Finish stamps the record with its outcome. The error string is kept for
// failed rollouts so history survives after logs rotate away.
func (r *Record) Finish(outcome Outcome, err error) {
	r.FinishedAt = time.Now().UTC()
	r.Outcome = outcome
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the rollout ran, or how long it has been
// running for an in-progress record.
func (r *Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists rollout records in BoltDB.
type Store struct {
	db *bolt.DB
}

// Open creates the data directory if needed and opens the rollout database.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cutover.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRollouts); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRollouts, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a record by ID.
func (s *Store) Save(record *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

// Get retrieves a record by ID.
func (s *Store) Get(id string) (*Record, error) {
	var record Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("rollout not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRollouts)
		return b.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}
