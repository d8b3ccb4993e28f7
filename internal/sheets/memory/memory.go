package memory

import (
	"context"
	"fmt"
	"sync"

	ports "spendora/internal/sheets"
)

// Store keeps sheet contents in process memory.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

var _ ports.RowWriter = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]any)}
}

// ReplaceRows stores a copy of rows and returns a synthetic reference.
func (s *Store) ReplaceRows(_ context.Context, sheet string, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = copyRows(rows)
	return fmt.Sprintf("mem:%s!%d", sheet, len(rows)), nil
}

// Rows returns the content last written to sheet.
func (s *Store) Rows(sheet string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.sheets[sheet])
}

// Sheets lists the names written so far.
func (s *Store) Sheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sheets))
	for name := range s.sheets {
		names = append(names, name)
	}
	return names
}

func copyRows(rows [][]any) [][]any {
	if rows == nil {
		return nil
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
