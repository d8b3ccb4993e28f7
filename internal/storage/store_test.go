package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spendora/internal/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(kv KV) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewStore(kv, WithClock(clock.Now)), clock
}

func expense(desc string, amount float64) core.Entry {
	return &core.ExpenseEntry{Result: core.ExpenseResult{Description: desc, Amount: amount, Category: "Other", Justification: "j"}}
}

type failingKV struct {
	getErr error
	setErr error
	inner  *MemoryKV
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, key, value)
}

func TestEmptyStore(t *testing.T) {
	s, _ := newTestStore(NewMemoryKV())
	ctx := context.Background()

	require.NotNil(t, s.GetHistory(ctx))
	require.Empty(t, s.GetHistory(ctx))
	require.NotNil(t, s.GetReminders(ctx))
	require.Empty(t, s.GetReminders(ctx))
}

func TestSaveHistoryItemOrdering(t *testing.T) {
	s, clock := newTestStore(NewMemoryKV())
	ctx := context.Background()

	var saved []core.HistoryItem
	for i, d := range []string{"first", "second", "third"} {
		item, err := s.SaveHistoryItem(ctx, expense(d, float64(i+1)))
		require.NoError(t, err)
		require.Equal(t, clock.Now().UnixMilli(), item.ID)
		saved = append(saved, item)
		clock.Advance(time.Second)
	}

	history := s.GetHistory(ctx)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		require.Greater(t, history[i-1].ID, history[i].ID, "history must be sorted by id descending")
	}
	require.Equal(t, saved[2], history[0])
	require.Equal(t, saved[0], history[2])
}

func TestSaveHistoryItemSameMillisecond(t *testing.T) {
	s, clock := newTestStore(NewMemoryKV())
	ctx := context.Background()

	a, err := s.SaveHistoryItem(ctx, expense("a", 1))
	require.NoError(t, err)
	b, err := s.SaveHistoryItem(ctx, expense("b", 2))
	require.NoError(t, err)

	require.Equal(t, clock.Now().UnixMilli(), a.ID)
	require.Equal(t, a.ID+1, b.ID)
	require.Equal(t, []int64{b.ID, a.ID}, ids(s.GetHistory(ctx)))
}

func TestHistoryRoundTrip(t *testing.T) {
	s, _ := newTestStore(NewMemoryKV())
	ctx := context.Background()
	gst := core.GST
	tax := 500.0
	entry := &core.InvoiceEntry{FileName: "acme.pdf", Result: core.InvoiceResult{
		Vendor: "Acme", InvoiceDate: "2024-03-10", TotalAmount: 5500, Category: "Software",
		TaxType: &gst, TaxAmount: &tax,
		LineItems: []core.LineItem{{Description: "licence", Amount: 5000}},
		Summary:   "Annual licence",
	}}

	item, err := s.SaveHistoryItem(ctx, entry)
	require.NoError(t, err)

	history := s.GetHistory(ctx)
	require.Len(t, history, 1)
	require.Equal(t, item, history[0])
	got, ok := history[0].Entry.(*core.InvoiceEntry)
	require.True(t, ok)
	require.Equal(t, *entry, *got)
}

func TestHistoryIsPrependedOnDisk(t *testing.T) {
	kv := NewMemoryKV()
	s, clock := newTestStore(kv)
	ctx := context.Background()

	first, err := s.SaveHistoryItem(ctx, expense("first", 1))
	require.NoError(t, err)
	clock.Advance(time.Millisecond)
	second, err := s.SaveHistoryItem(ctx, expense("second", 2))
	require.NoError(t, err)

	raw, ok, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stored []struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Equal(t, second.ID, stored[0].ID)
	require.Equal(t, first.ID, stored[1].ID)
	require.Equal(t, "expense", stored[0].Type)
}

func TestMalformedCollectionsReadAsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, HistoryKey, []byte("{not json")))
	require.NoError(t, kv.Set(ctx, RemindersKey, []byte(`{"id":1}`)))

	s, _ := newTestStore(kv)
	require.Empty(t, s.GetHistory(ctx))
	require.Empty(t, s.GetReminders(ctx))

	item, err := s.SaveHistoryItem(ctx, expense("fresh", 3))
	require.NoError(t, err)
	require.Equal(t, []int64{item.ID}, ids(s.GetHistory(ctx)))
}

func TestUnknownHistoryEntriesAreSkipped(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	raw := `[{"id":3,"type":"payroll"},{"id":2,"type":"expense","expenseResult":{"description":"Coffee","amount":4.5,"category":"Meals","justification":"j"}}]`
	require.NoError(t, kv.Set(ctx, HistoryKey, []byte(raw)))

	s, _ := newTestStore(kv)
	history := s.GetHistory(ctx)
	require.Len(t, history, 1)
	require.Equal(t, int64(2), history[0].ID)
}

func TestRewriteKeepsUnreadableEntries(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	transfer := `{"id":5,"type":"transfer","amount":20}`
	coffee := `{"id":2,"type":"expense","expenseResult":{"description":"Coffee","amount":4.5,"category":"Meals","justification":"j"}}`
	require.NoError(t, kv.Set(ctx, HistoryKey, []byte("["+transfer+","+coffee+"]")))
	badReminder := `{"id":1,"taxType":"GST","dueDate":"2024-04-20","amount":"500"}`
	tds := `{"id":2,"taxType":"TDS","dueDate":"2024-04-07","amount":7,"sourceInvoiceFile":"rent.pdf","sourceInvoiceId":2}`
	require.NoError(t, kv.Set(ctx, RemindersKey, []byte("["+badReminder+","+tds+"]")))

	s, _ := newTestStore(kv)
	require.Len(t, s.GetReminders(ctx), 1)

	item, err := s.SaveHistoryItem(ctx, expense("lunch", 12))
	require.NoError(t, err)
	_, err = s.AddReminder(ctx, core.TaxReminder{TaxType: core.GST, DueDate: "2024-05-20", Amount: 30})
	require.NoError(t, err)

	raw, _, err := kv.Get(ctx, HistoryKey)
	require.NoError(t, err)
	var history []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 3)
	require.JSONEq(t, transfer, string(history[1]))
	require.JSONEq(t, coffee, string(history[2]))
	require.Equal(t, []int64{item.ID, 2}, ids(s.GetHistory(ctx)))

	raw, _, err = kv.Get(ctx, RemindersKey)
	require.NoError(t, err)
	var reminders []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &reminders))
	require.Len(t, reminders, 3)
	require.JSONEq(t, badReminder, string(reminders[0]))
	require.JSONEq(t, tds, string(reminders[1]))
	require.Len(t, s.GetReminders(ctx), 2)
}

func TestIDsStayAboveUnreadableEntries(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, HistoryKey, []byte(`[{"id":99999999999999,"type":"transfer"}]`)))

	s, _ := newTestStore(kv)
	item, err := s.SaveHistoryItem(ctx, expense("lunch", 12))
	require.NoError(t, err)
	require.Equal(t, int64(100000000000000), item.ID)
}

func TestRemindersSortedByDueDate(t *testing.T) {
	kv := NewMemoryKV()
	s, clock := newTestStore(kv)
	ctx := context.Background()

	for _, due := range []string{"2024-05-20", "2024-04-07", "2024-04-20"} {
		_, err := s.AddReminder(ctx, core.TaxReminder{TaxType: core.GST, DueDate: due, Amount: 10, ID: 99})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	got := s.GetReminders(ctx)
	require.Len(t, got, 3)
	require.Equal(t, []string{"2024-04-07", "2024-04-20", "2024-05-20"},
		[]string{got[0].DueDate, got[1].DueDate, got[2].DueDate})

	raw, _, err := kv.Get(ctx, RemindersKey)
	require.NoError(t, err)
	var stored []core.TaxReminder
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Equal(t, "2024-05-20", stored[0].DueDate, "reminders are appended in creation order")
	require.NotEqual(t, int64(99), stored[0].ID)
}

func TestWriteFailureIsSurfaced(t *testing.T) {
	boom := errors.New("quota exceeded")
	kv := &failingKV{setErr: boom, inner: NewMemoryKV()}
	s, clock := newTestStore(kv)
	ctx := context.Background()

	item, err := s.SaveHistoryItem(ctx, expense("coffee", 4.5))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.ErrorIs(t, err, boom)
	require.Equal(t, HistoryKey, pe.Key)
	require.Equal(t, clock.Now().UnixMilli(), item.ID, "the in-memory item is still returned")
	require.Empty(t, s.GetHistory(ctx))

	reminder, err := s.AddReminder(ctx, core.TaxReminder{TaxType: core.TDS, DueDate: "2024-04-07"})
	require.ErrorAs(t, err, &pe)
	require.Equal(t, RemindersKey, pe.Key)
	require.NotZero(t, reminder.ID)
}

func TestReadFailure(t *testing.T) {
	kv := &failingKV{getErr: errors.New("access denied"), inner: NewMemoryKV()}
	s, _ := newTestStore(kv)
	ctx := context.Background()

	require.Empty(t, s.GetHistory(ctx))
	require.Empty(t, s.GetReminders(ctx))

	_, err := s.SaveHistoryItem(ctx, expense("coffee", 4.5))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "read", pe.Op)
}

func TestSaveNilEntry(t *testing.T) {
	s, _ := newTestStore(NewMemoryKV())
	_, err := s.SaveHistoryItem(context.Background(), nil)
	require.Error(t, err)
}

func ids(items []core.HistoryItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
