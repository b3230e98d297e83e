package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	EventCreated  = "created"
	EventReversed = "reversed"
)

// Event is one line of the persisted ledger: either a new artifact record
// or a reversal of an earlier one. One JSON object per line keeps the file
// append-friendly and auditable with standard tools.
type Event struct {
	Type     string    `json:"event"`
	Record   *Record   `json:"record,omitempty"`
	RecordID string    `json:"record_id,omitempty"`
	Time     time.Time `json:"time,omitempty"`
}

// Store persists ledger events.
type Store interface {
	Append(Event) error
}

// FileStore appends ledger events to a JSONL file.
type FileStore struct {
	mu sync.Mutex
	f  *os.File
}

func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	return &FileStore{f: f}, nil
}

func (s *FileStore) Append(e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending ledger event: %w", err)
	}
	return s.f.Sync()
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// LoadFile replays a persisted ledger file into an in-memory ledger. The
// returned ledger is detached from the file; attach a store with runID via
// NewPersistent if further events should be appended.
func LoadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	l := &Ledger{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("ledger file %s line %d: %w", path, lineNo, err)
		}

		switch e.Type {
		case EventCreated:
			if e.Record == nil {
				return nil, fmt.Errorf("ledger file %s line %d: created event without record", path, lineNo)
			}
			l.records = append(l.records, e.Record)
			if l.runID == "" {
				l.runID = e.Record.RunID
			}
		case EventReversed:
			for _, r := range l.records {
				if r.ID == e.RecordID {
					t := e.Time
					r.Reversed = true
					r.ReversedAt = &t
					break
				}
			}
		default:
			return nil, fmt.Errorf("ledger file %s line %d: unknown event %q", path, lineNo, e.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}

	return l, nil
}

// AttachStore wires a store into a ledger loaded from disk so that
// subsequent reversals are appended to the same file.
func (l *Ledger) AttachStore(store Store) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = store
}
