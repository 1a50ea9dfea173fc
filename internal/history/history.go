package history

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// BothModels is the model tag of a record produced by a comparison.
const BothModels = "both"

var ErrIndexOutOfRange = errors.New("history index out of range")

// Response is either SingleResponse or CompareResponse.
type Response interface {
	isResponse()
}

type SingleResponse struct {
	Text string
}

// CompareResponse maps each compared model to its answer.
type CompareResponse struct {
	Answers map[string]string
}

func (SingleResponse) isResponse()  {}
func (CompareResponse) isResponse() {}

// Record is one successful interaction. Its position in the store is its
// only identity.
type Record struct {
	Prompt    string
	Model     string
	Response  Response
	CreatedAt time.Time
}

// NewSingle builds a record for a single-model answer.
func NewSingle(prompt, model, answer string) Record {
	return Record{Prompt: prompt, Model: model, Response: SingleResponse{Text: answer}, CreatedAt: time.Now().UTC()}
}

// NewCompare builds a "both" record; answers must be keyed by model id.
func NewCompare(prompt string, answers map[string]string) Record {
	cp := make(map[string]string, len(answers))
	for k, v := range answers {
		cp[k] = v
	}
	return Record{Prompt: prompt, Model: BothModels, Response: CompareResponse{Answers: cp}, CreatedAt: time.Now().UTC()}
}

// Store is an insertion-ordered log of records. With a positive capacity the
// oldest record is dropped once the store is full.
type Store struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
}

// NewStore returns an empty store; capacity <= 0 means unbounded.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{capacity: capacity}
}

func (s *Store) Capacity() int { return s.capacity }

func (s *Store) Append(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && len(s.records) >= s.capacity {
		n := len(s.records) - s.capacity + 1
		// copy down instead of reslicing so the backing array does not grow forever
		copy(s.records, s.records[n:])
		for i := len(s.records) - n; i < len(s.records); i++ {
			s.records[i] = Record{}
		}
		s.records = s.records[:len(s.records)-n]
	}
	s.records = append(s.records, rec)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a chronological copy.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Recent returns up to n records, newest first, together with the total
// count observed under the same lock.
func (s *Store) Recent(n int) ([]Record, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.records)
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	out := make([]Record, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, s.records[i])
	}
	return out, total
}

// At returns the record at a chronological position.
func (s *Store) At(i int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.records) {
		return Record{}, fmt.Errorf("position %d of %d: %w", i, len(s.records), ErrIndexOutOfRange)
	}
	return s.records[i], nil
}

// ByDisplayIndex resolves a 0-based most-recent-first index.
func (s *Store) ByDisplayIndex(displayIndex int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, err := DisplayIndexToChronological(displayIndex, len(s.records))
	if err != nil {
		return Record{}, err
	}
	return s.records[i], nil
}

// DisplayIndexToChronological maps a 0-based index in the newest-first view
// (0 is the newest record) to its position in insertion order. Valid inputs
// are 0 <= displayIndex < total.
func DisplayIndexToChronological(displayIndex, total int) (int, error) {
	if displayIndex < 0 || displayIndex >= total {
		return 0, fmt.Errorf("display index %d of %d: %w", displayIndex, total, ErrIndexOutOfRange)
	}
	return total - 1 - displayIndex, nil
}
