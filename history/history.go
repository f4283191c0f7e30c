// Package history persists the reports of scenario runs, so that a run can be compared with the previous runs of
// the same scenarios.
package history

import (
	"encoding/binary"
	"fortio.org/safecast"
	"github.com/crytic/symheap/scenario"
	"github.com/crytic/symheap/utils"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"path/filepath"
	"time"
)

// runsBucket is the root bucket of the store. It holds one nested bucket per scenario digest, whose keys are the
// big-endian UNIX nanosecond timestamps of the runs.
var runsBucket = []byte("runs")

// Store is a report history backed by a bbolt database. It is safe for concurrent use.
type Store struct {
	db *bbolt.DB
}

// Entry is a report recorded in the history.
type Entry struct {
	// At is the time the run was recorded.
	At time.Time

	// Report is the report of the run.
	Report *scenario.Report
}

// Open opens the history stored at path, creating it if it does not exist yet.
func Open(path string) (*Store, error) {
	if err := utils.MakeDirectory(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open history %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

func timeKey(at time.Time) ([]byte, error) {
	nanos, err := safecast.Conv[uint64](at.UnixNano())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid run time %v", at)
	}
	return binary.BigEndian.AppendUint64(nil, nanos), nil
}

func decodeEntry(key, value []byte) (Entry, error) {
	nanos, err := safecast.Conv[int64](binary.BigEndian.Uint64(key))
	if err != nil {
		return Entry{}, errors.WithStack(err)
	}
	var report scenario.Report
	if err = cbor.Unmarshal(value, &report); err != nil {
		return Entry{}, errors.WithStack(err)
	}
	return Entry{At: time.Unix(0, nanos), Report: &report}, nil
}

// Record stores the report of a run of the scenario, made at the given time.
func (s *Store) Record(sc *scenario.Scenario, report *scenario.Report, at time.Time) error {
	digest, err := sc.Digest()
	if err != nil {
		return err
	}
	key, err := timeKey(at)
	if err != nil {
		return err
	}
	value, err := cbor.Marshal(report, cbor.EncOptions{})
	if err != nil {
		return errors.WithStack(err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		runs, err := tx.Bucket(runsBucket).CreateBucketIfNotExists(digest)
		if err != nil {
			return err
		}
		return runs.Put(key, value)
	})
	return errors.WithStack(err)
}

// Runs returns the recorded runs of the scenario, oldest first.
func (s *Store) Runs(sc *scenario.Scenario) ([]Entry, error) {
	digest, err := sc.Digest()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = s.db.View(func(tx *bbolt.Tx) error {
		runs := tx.Bucket(runsBucket).Bucket(digest)
		if runs == nil {
			return nil
		}
		return runs.ForEach(func(key, value []byte) error {
			entry, err := decodeEntry(key, value)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Latest returns the most recent run of the scenario, or nil if it never ran.
func (s *Store) Latest(sc *scenario.Scenario) (*Entry, error) {
	digest, err := sc.Digest()
	if err != nil {
		return nil, err
	}

	var latest *Entry
	err = s.db.View(func(tx *bbolt.Tx) error {
		runs := tx.Bucket(runsBucket).Bucket(digest)
		if runs == nil {
			return nil
		}
		key, value := runs.Cursor().Last()
		if key == nil {
			return nil
		}
		entry, err := decodeEntry(key, value)
		if err != nil {
			return err
		}
		latest = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// Regressed indicates whether the report failed while the previous run of the same scenario passed.
func Regressed(previous *Entry, report *scenario.Report) bool {
	return previous != nil && !previous.Report.Failed() && report.Failed()
}
