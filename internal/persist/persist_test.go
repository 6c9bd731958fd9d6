package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mailsift/mailsift/internal/snapshot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnapshot() *snapshot.Snapshot {
	taken := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &snapshot.Snapshot{
		TakenAt: taken,
		Labels: []snapshot.Label{
			{ID: "INBOX", Name: "INBOX", MessageCount: 2, System: true},
			{ID: "L1", Name: "receipts", MessageCount: 1},
		},
		Messages: []snapshot.Message{
			{
				ID: "m1", ThreadID: "t1",
				Sender: "orders@shop.com", SenderName: "Shop",
				Subject: "Order shipped", Snippet: "on the way",
				Date:   taken.AddDate(0, 0, -3),
				Labels: []string{"INBOX", "receipts"},
				Read:   true, HasUnsubscribe: true,
			},
			{
				ID: "m2", ThreadID: "t2",
				Sender: "friend@gmail.com",
				Date:   taken.AddDate(0, 0, -1),
				Labels: []string{"INBOX"},
				Read:   true, Starred: true, Replied: true, HasAttachment: true,
			},
		},
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	want := sampleSnapshot()

	if err := db.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.SaveSnapshot(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	smaller := &snapshot.Snapshot{
		TakenAt: time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC),
		Labels:  []snapshot.Label{{ID: "L9", Name: "only"}},
		Messages: []snapshot.Message{
			{ID: "x1", Sender: "a@b.com", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Labels: []string{"only"}},
		},
	}
	if err := db.SaveSnapshot(ctx, smaller); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(smaller, got); diff != "" {
		t.Fatalf("replacement mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSnapshotEmpty(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadSnapshot(context.Background()); err != ErrNoSnapshot {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestFresh(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	fresh, err := db.Fresh(ctx, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("fresh on empty db: %v", err)
	}
	if fresh {
		t.Fatalf("empty cache cannot be fresh")
	}

	snap := sampleSnapshot()
	if err := db.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh, err = db.Fresh(ctx, snap.TakenAt.Add(30*time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if !fresh {
		t.Fatalf("30m old snapshot should be fresh within 1h")
	}
	fresh, err = db.Fresh(ctx, snap.TakenAt.Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if fresh {
		t.Fatalf("2h old snapshot should be stale at 1h")
	}
}

func TestDeletionHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	when := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := db.RecordDeletions(ctx, []string{"a@spam.io", "a@spam.io", "b@spam.io"}, when); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.RecordDeletions(ctx, []string{"a@spam.io"}, when.Add(time.Hour)); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := db.DeletionHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := map[string]int{"a@spam.io": 3, "b@spam.io": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveMessages(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.SaveSnapshot(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.RemoveMessages(ctx, []string{"m1"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, err := db.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != "m2" {
		t.Fatalf("messages after removal: %+v", got.Messages)
	}
}
