//go:generate go run go.uber.org/mock/mockgen -source=journal.go -destination=../mocks/mock_journal.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// EntryKind separates detections from actual rings in the journal keyspace.
type EntryKind string

const (
	KindArtifact EntryKind = "artifact"
	KindRing     EntryKind = "ring"
)

type IRingJournal interface {
	Store(entry JournalEntry) error
	GetEntries(kind EntryKind) ([]JournalEntry, error)
}

// JournalEntry is one processed snapshot or one ring, kept purely for
// inspection. The pipeline never reads the journal back; de-dup and
// cooldown state live in memory.
type JournalEntry struct {
	ID         uuid.UUID `json:"id"`
	Kind       EntryKind `json:"kind"`
	Path       string    `json:"path,omitempty"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// RingJournal persists journal entries in BadgerDB.
// The key is formatted as "{kind}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     entries arrive at the same nanosecond.
type RingJournal struct {
	db         *badger.DB
	log        *slog.Logger
	limitEntry *int
}

func NewRingJournal(db *badger.DB, log *slog.Logger, limitEntry *int) RingJournal {
	return RingJournal{db: db, log: log, limitEntry: limitEntry}
}

func (j RingJournal) Store(entry JournalEntry) error {
	key := fmt.Sprintf("%s:%019d:%s", entry.Kind, entry.At.UnixNano(), entry.ID)
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// GetEntries returns entries of one kind in chronological order, capped at
// the configured limit when one is set.
func (j RingJournal) GetEntries(kind EntryKind) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s:", kind))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if j.limitEntry != nil && len(entries) == *j.limitEntry {
				j.log.Debug(fmt.Sprintf("Maximum of %d journal entries reached", *j.limitEntry))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var entry JournalEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

var _ IRingJournal = RingJournal{}
