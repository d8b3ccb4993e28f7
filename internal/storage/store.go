// Package storage persists processing history and tax reminders.
//
// Both collections are JSON arrays kept under fixed keys of a KV medium and
// rewritten whole on every write. Reads never fail: a missing or unreadable
// collection is reported as empty and logged.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"spendora/internal/core"
	"spendora/internal/log"
)

const (
	HistoryKey   = "demystify_finance_history"
	RemindersKey = "spendora_tax_reminders"
)

type Store struct {
	kv  KV
	now func() time.Time
	// mu serializes read-modify-write cycles within this process
	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the time source used to assign ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHistory returns all history items, most recent first.
func (s *Store) GetHistory(ctx context.Context) []core.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, _, err := s.loadHistory(ctx)
	if err != nil {
		return []core.HistoryItem{}
	}
	sortHistory(items)
	return items
}

// SaveHistoryItem assigns an id to entry, prepends it to the history and
// persists the collection. On a write failure the item is still returned
// together with a *PersistenceError.
func (s *Store) SaveHistoryItem(ctx context.Context, entry core.Entry) (core.HistoryItem, error) {
	if entry == nil {
		return core.HistoryItem{}, errors.New("save history item: nil entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, stored, err := s.loadHistory(ctx)
	if err != nil && !errors.Is(err, errCorrupt) {
		return core.HistoryItem{}, err
	}

	item := core.HistoryItem{ID: s.nextID(maxRawID(stored)), Entry: entry}
	encoded, err := json.Marshal(item)
	if err != nil {
		return core.HistoryItem{}, err
	}
	// stored elements are rewritten verbatim, including ones this version cannot read
	stored = append([]json.RawMessage{encoded}, stored...)

	if err := s.write(ctx, HistoryKey, stored); err != nil {
		return item, err
	}

	slog.DebugContext(ctx, "History item saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldID, item.ID,
		log.FieldKind, entry.Kind(),
		log.FieldCount, len(stored))
	return item, nil
}

// GetReminders returns all tax reminders, soonest due date first.
func (s *Store) GetReminders(ctx context.Context) []core.TaxReminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, _, err := s.loadReminders(ctx)
	if err != nil {
		return []core.TaxReminder{}
	}
	sortReminders(reminders)
	return reminders
}

// AddReminder assigns an id to reminder, appends it and persists the
// collection. The ID field of the argument is ignored.
func (s *Store) AddReminder(ctx context.Context, reminder core.TaxReminder) (core.TaxReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, stored, err := s.loadReminders(ctx)
	if err != nil && !errors.Is(err, errCorrupt) {
		return core.TaxReminder{}, err
	}

	reminder.ID = s.nextID(maxRawID(stored))
	encoded, err := json.Marshal(reminder)
	if err != nil {
		return core.TaxReminder{}, err
	}
	stored = append(stored, encoded)

	if err := s.write(ctx, RemindersKey, stored); err != nil {
		return reminder, err
	}

	slog.DebugContext(ctx, "Tax reminder saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldID, reminder.ID,
		log.FieldTaxType, reminder.TaxType,
		log.FieldDueDate, reminder.DueDate)
	return reminder, nil
}

// nextID is the current time in milliseconds, bumped past maxID so ids stay
// unique when two writes land in the same millisecond.
func (s *Store) nextID(maxID int64) int64 {
	id := s.now().UnixMilli()
	if id <= maxID {
		id = maxID + 1
	}
	return id
}

var errCorrupt = errors.New("corrupt collection")

// read fetches key. A missing key yields nil data and no error.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read collection",
			log.NewFields().
				WithComponent(log.ComponentStorage).
				WithOperation(log.OpRead).
				WithKey(key).
				WithErrorType(log.ErrorTypePersistence).
				WithError(err).ToSlice()...)
		return nil, &PersistenceError{Op: log.OpRead, Key: key, Err: err}
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// loadHistory decodes the history collection. stored holds every element
// as persisted, in order, so a rewrite keeps entries that were skipped.
func (s *Store) loadHistory(ctx context.Context) (items []core.HistoryItem, stored []json.RawMessage, err error) {
	stored, err = s.readArray(ctx, HistoryKey)
	if err != nil {
		return []core.HistoryItem{}, nil, err
	}

	items = make([]core.HistoryItem, 0, len(stored))
	for i, r := range stored {
		var item core.HistoryItem
		if err := json.Unmarshal(r, &item); err != nil {
			logSkipped(ctx, HistoryKey, i, err)
			continue
		}
		items = append(items, item)
	}
	return items, stored, nil
}

// loadReminders decodes reminders element by element, like loadHistory.
func (s *Store) loadReminders(ctx context.Context) (reminders []core.TaxReminder, stored []json.RawMessage, err error) {
	stored, err = s.readArray(ctx, RemindersKey)
	if err != nil {
		return []core.TaxReminder{}, nil, err
	}

	reminders = make([]core.TaxReminder, 0, len(stored))
	for i, r := range stored {
		var rem core.TaxReminder
		if err := json.Unmarshal(r, &rem); err != nil {
			logSkipped(ctx, RemindersKey, i, err)
			continue
		}
		reminders = append(reminders, rem)
	}
	return reminders, stored, nil
}

// readArray splits the collection under key into its raw elements. A
// missing key is an empty collection; a value that is not a JSON array
// yields errCorrupt.
func (s *Store) readArray(ctx context.Context, key string) ([]json.RawMessage, error) {
	data, err := s.read(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logCorrupt(ctx, key, err)
		return nil, errCorrupt
	}
	return raw, nil
}

// maxRawID is the largest numeric "id" among stored elements, readable or not.
func maxRawID(stored []json.RawMessage) int64 {
	var maxID int64
	for _, r := range stored {
		var head struct {
			ID json.Number `json:"id"`
		}
		if json.Unmarshal(r, &head) != nil {
			continue
		}
		if id, err := head.ID.Int64(); err == nil {
			maxID = max(maxID, id)
		}
	}
	return maxID
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err == nil {
		err = s.kv.Set(ctx, key, data)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to persist collection",
			log.FieldComponent, log.ComponentStorage,
			log.FieldOperation, log.OpWrite,
			log.FieldKey, key,
			log.FieldErrorType, log.ErrorTypePersistence,
			log.FieldError, err)
		return &PersistenceError{Op: log.OpWrite, Key: key, Err: err}
	}
	return nil
}

func logCorrupt(ctx context.Context, key string, err error) {
	slog.WarnContext(ctx, "Stored collection is not valid JSON, treating as empty",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpDecode,
		log.FieldKey, key,
		log.FieldError, err)
}

func logSkipped(ctx context.Context, key string, index int, err error) {
	slog.WarnContext(ctx, "Skipping unreadable stored entry",
		log.FieldComponent, log.ComponentStorage,
		log.FieldKey, key,
		"index", index,
		log.FieldError, err)
}

func sortHistory(items []core.HistoryItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })
}

// sortReminders orders by due date; YYYY-MM-DD strings sort chronologically.
func sortReminders(reminders []core.TaxReminder) {
	sort.SliceStable(reminders, func(i, j int) bool { return reminders[i].DueDate < reminders[j].DueDate })
}
