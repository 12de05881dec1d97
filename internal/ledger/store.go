package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

const keyPrefix = "playlist/"

// Entry records a playlist that was fully downloaded by an earlier run.
type Entry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Folder      string    `json:"folder"`
	VideoCount  int       `json:"video_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store is a completion ledger kept in a pebble database under the base
// directory. It only ever skips work; losing it costs a re-probe, nothing more.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("ledger directory is required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open completion ledger %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Lookup returns the entry for url, if any.
func (s *Store) Lookup(url string) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, fmt.Errorf("completion ledger not open")
	}
	data, closer, err := s.db.Get(key(url))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read ledger entry: %w", err)
	}
	defer closer.Close()

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode ledger entry: %w", err)
	}
	return e, true, nil
}

func (s *Store) MarkComplete(e Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("completion ledger not open")
	}
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Errorf("ledger entry URL is required")
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	return s.db.Set(key(e.URL), data, pebble.Sync)
}

func (s *Store) Forget(url string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("completion ledger not open")
	}
	return s.db.Delete(key(url), pebble.Sync)
}

// List returns every entry in key order. Undecodable records are skipped.
func (s *Store) List() ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("completion ledger not open")
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix[:len(keyPrefix)-1] + "0"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func key(url string) []byte {
	return []byte(keyPrefix + strings.TrimSpace(url))
}
