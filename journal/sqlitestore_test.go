package journal

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// testDSN returns a unique shared-memory DSN for test isolation.
func testDSN(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
}

func newTestStore(t *testing.T, cfg ...SQLiteStoreConfig) *SQLiteStore {
	t.Helper()
	var c SQLiteStoreConfig
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.DSN == "" {
		c.DSN = testDSN(t)
	}
	store, err := NewSQLiteStore(c)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Append_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.Append(ctx, makeRecord("orders", i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	records, err := store.List(ctx, "orders", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}

	for i, rec := range records {
		if rec.Seq != uint64(i+1) {
			t.Errorf("record %d: Seq = %d, want %d", i, rec.Seq, i+1)
		}
		if rec.Topic != "orders" {
			t.Errorf("record %d: Topic = %q, want %q", i, rec.Topic, "orders")
		}
		wantPayload := fmt.Sprintf(`{"n":%d}`, i+1)
		if string(rec.Payload) != wantPayload {
			t.Errorf("record %d: Payload = %s, want %s", i, rec.Payload, wantPayload)
		}
		if rec.Time.IsZero() {
			t.Errorf("record %d: Time is zero", i)
		}
	}
}

func TestSQLiteStore_SeqIsPerTopic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := store.Append(ctx, makeRecord("a", i)); err != nil {
			t.Fatalf("Append a %d: %v", i, err)
		}
	}
	if err := store.Append(ctx, makeRecord("b", 1)); err != nil {
		t.Fatalf("Append b: %v", err)
	}

	seqA, err := store.LatestSeq(ctx, "a")
	if err != nil {
		t.Fatalf("LatestSeq(a): %v", err)
	}
	if seqA != 3 {
		t.Errorf("LatestSeq(a) = %d, want 3", seqA)
	}

	seqB, err := store.LatestSeq(ctx, "b")
	if err != nil {
		t.Fatalf("LatestSeq(b): %v", err)
	}
	if seqB != 1 {
		t.Errorf("LatestSeq(b) = %d, want 1", seqB)
	}
}

func TestSQLiteStore_ListAfterSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if err := store.Append(ctx, makeRecord("t", i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	records, err := store.List(ctx, "t", 7, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Seq != 8 {
		t.Errorf("first record Seq = %d, want 8", records[0].Seq)
	}
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if err := store.Append(ctx, makeRecord("t", i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	records, err := store.List(ctx, "t", 0, 4)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[3].Seq != 4 {
		t.Errorf("last record Seq = %d, want 4", records[3].Seq)
	}
}

func TestSQLiteStore_LatestSeqEmpty(t *testing.T) {
	store := newTestStore(t)

	seq, err := store.LatestSeq(context.Background(), "missing")
	if err != nil {
		t.Fatalf("LatestSeq: %v", err)
	}
	if seq != 0 {
		t.Errorf("LatestSeq = %d, want 0", seq)
	}
}

func TestSQLiteStore_EmptyPayloadDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := makeRecord("t", 1)
	rec.Payload = nil
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx, "t", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if string(records[0].Payload) != "{}" {
		t.Errorf("Payload = %s, want {}", records[0].Payload)
	}
}

func TestSQLiteStore_Topics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, topic := range []string{"b", "a", "a", "c"} {
		if err := store.Append(ctx, makeRecord(topic, 1)); err != nil {
			t.Fatalf("Append %q: %v", topic, err)
		}
	}

	topics, err := store.Topics(ctx)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(topics) != len(want) {
		t.Fatalf("got %d topics %v, want %v", len(topics), topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], want[i])
		}
	}
}

func TestSQLiteStore_PruneByCount(t *testing.T) {
	store := newTestStore(t, SQLiteStoreConfig{
		DSN:            testDSN(t),
		RetentionCount: 3,
		PruneInterval:  time.Hour,
	})
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		if err := store.Append(ctx, makeRecord("t", i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	records, err := store.List(ctx, "t", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records after prune, want 3", len(records))
	}
	if records[0].Seq != 8 {
		t.Errorf("oldest surviving Seq = %d, want 8", records[0].Seq)
	}
}

func TestSQLiteStore_PruneByAge(t *testing.T) {
	store := newTestStore(t, SQLiteStoreConfig{
		DSN:           testDSN(t),
		RetentionAge:  time.Minute,
		PruneInterval: time.Hour,
	})
	ctx := context.Background()

	old := makeRecord("t", 1)
	old.Time = time.Now().UTC().Add(-time.Hour)
	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("Append old: %v", err)
	}
	if err := store.Append(ctx, makeRecord("t", 2)); err != nil {
		t.Fatalf("Append fresh: %v", err)
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	records, err := store.List(ctx, "t", 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records after prune, want 1", len(records))
	}
	if records[0].ID != "rec-2" {
		t.Errorf("surviving record ID = %q, want %q", records[0].ID, "rec-2")
	}
}

func TestSQLiteStore_CloseTwice(t *testing.T) {
	store, err := NewSQLiteStore(SQLiteStoreConfig{DSN: testDSN(t)})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	// Second close must not panic on the stop channel.
	_ = store.Close()
}
