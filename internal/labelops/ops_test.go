package labelops

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/snapshot"
)

type fakeClient struct {
	batchOps      []gmail.ModifyOps
	batchBatches  [][]gmail.MessageID
	deletedLabels []gmail.LabelID
	ensured       []string
}

func (f *fakeClient) List(ctx context.Context, q gmail.Query, pageToken string, pageSize int) (gmail.ListPage, error) {
	_ = ctx
	_ = q
	_ = pageToken
	_ = pageSize
	return gmail.ListPage{}, nil
}

func (f *fakeClient) GetMetadata(ctx context.Context, id gmail.MessageID, headers []string) (gmail.MessageMeta, error) {
	_ = ctx
	_ = headers
	return gmail.MessageMeta{ID: id}, nil
}

func (f *fakeClient) BatchModify(ctx context.Context, ids []gmail.MessageID, ops gmail.ModifyOps) error {
	_ = ctx
	f.batchBatches = append(f.batchBatches, append([]gmail.MessageID(nil), ids...))
	f.batchOps = append(f.batchOps, ops)
	return nil
}

func (f *fakeClient) Trash(ctx context.Context, id gmail.MessageID) error {
	_ = ctx
	_ = id
	return nil
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]gmail.Label, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeClient) EnsureLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	_ = ctx
	f.ensured = append(f.ensured, name)
	return "Label123", nil
}

func (f *fakeClient) DeleteLabel(ctx context.Context, id gmail.LabelID) error {
	_ = ctx
	f.deletedLabels = append(f.deletedLabels, id)
	return nil
}

type noLimiter struct{}

func (noLimiter) Wait(ctx context.Context) error {
	_ = ctx
	return nil
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mergeSnapshot(members int) (*snapshot.Snapshot, *snapshot.Index) {
	snap := &snapshot.Snapshot{
		Labels: []snapshot.Label{
			{ID: "INBOX", Name: "INBOX", System: true},
			{ID: "L1", Name: "projects"},
			{ID: "L2", Name: "work"},
		},
	}
	for i := 0; i < members; i++ {
		snap.Messages = append(snap.Messages, snapshot.Message{
			ID: fmt.Sprintf("m-%04d", i), Sender: "a@b.com", Labels: []string{"projects"},
		})
	}
	ix, err := snapshot.BuildIndex(snap)
	if err != nil {
		panic(err)
	}
	return snap, ix
}

func TestMergeRelabelsAndDeletes(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}}
	snap, ix := mergeSnapshot(3)

	res, err := svc.Merge(context.Background(), snap, ix, "projects", "work")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if res.Moved != 3 {
		t.Fatalf("moved %d, want 3", res.Moved)
	}
	if len(fake.batchBatches) != 1 || len(fake.batchBatches[0]) != 3 {
		t.Fatalf("batch calls %v", fake.batchBatches)
	}
	ops := fake.batchOps[0]
	if len(ops.AddLabels) != 1 || ops.AddLabels[0] != "L2" {
		t.Fatalf("add ops %v", ops.AddLabels)
	}
	if len(ops.RemoveLabels) != 1 || ops.RemoveLabels[0] != "L1" {
		t.Fatalf("remove ops %v", ops.RemoveLabels)
	}
	if len(fake.deletedLabels) != 1 || fake.deletedLabels[0] != "L1" {
		t.Fatalf("deleted labels %v", fake.deletedLabels)
	}
}

func TestMergeChunking(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}}
	snap, ix := mergeSnapshot(1200)

	if _, err := svc.Merge(context.Background(), snap, ix, "projects", "work"); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(fake.batchBatches) != 2 {
		t.Fatalf("expected 2 batch calls, got %d", len(fake.batchBatches))
	}
	if len(fake.batchBatches[0]) != 1000 || len(fake.batchBatches[1]) != 200 {
		t.Fatalf("chunk sizes %d, %d", len(fake.batchBatches[0]), len(fake.batchBatches[1]))
	}
}

func TestMergeDryRun(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}, DryRun: true}
	snap, ix := mergeSnapshot(3)

	res, err := svc.Merge(context.Background(), snap, ix, "projects", "work")
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if res.Moved != 3 {
		t.Fatalf("dry run should still report the move count, got %d", res.Moved)
	}
	if len(fake.batchBatches) != 0 || len(fake.deletedLabels) != 0 {
		t.Fatalf("dry run must not mutate: %v %v", fake.batchBatches, fake.deletedLabels)
	}
}

func TestMergeRejectsSystemAndUnknownLabels(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}}
	snap, ix := mergeSnapshot(1)

	if _, err := svc.Merge(context.Background(), snap, ix, "INBOX", "work"); err == nil {
		t.Fatalf("merging a system label must fail")
	}
	if _, err := svc.Merge(context.Background(), snap, ix, "ghost", "work"); err == nil {
		t.Fatalf("merging an unknown label must fail")
	}
}

func TestDelete(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}}
	snap, _ := mergeSnapshot(1)

	if err := svc.Delete(context.Background(), snap, "projects"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(fake.deletedLabels) != 1 || fake.deletedLabels[0] != "L1" {
		t.Fatalf("deleted labels %v", fake.deletedLabels)
	}
	if err := svc.Delete(context.Background(), snap, "INBOX"); err == nil {
		t.Fatalf("deleting a system label must fail")
	}
}

func TestApplyEnsuresLabel(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{Client: fake, Log: slogDiscard(), Rate: noLimiter{}}

	ids := []gmail.MessageID{"a", "b"}
	if err := svc.Apply(context.Background(), "Github", ids); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(fake.ensured) != 1 || fake.ensured[0] != "Github" {
		t.Fatalf("ensured labels %v", fake.ensured)
	}
	if len(fake.batchBatches) != 1 || len(fake.batchBatches[0]) != 2 {
		t.Fatalf("batch calls %v", fake.batchBatches)
	}
	if fake.batchOps[0].AddLabels[0] != "Label123" {
		t.Fatalf("apply ops %v", fake.batchOps[0])
	}
}
