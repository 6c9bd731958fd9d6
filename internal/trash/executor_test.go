package trash

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/safety"
	"github.com/mailsift/mailsift/internal/snapshot"
)

type fakeClient struct {
	trashed  []gmail.MessageID
	trashErr error
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
	_ = ids
	_ = ops
	return nil
}

func (f *fakeClient) Trash(ctx context.Context, id gmail.MessageID) error {
	_ = ctx
	if f.trashErr != nil {
		return f.trashErr
	}
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeClient) ListLabels(ctx context.Context) ([]gmail.Label, error) {
	_ = ctx
	return nil, nil
}

func (f *fakeClient) EnsureLabel(ctx context.Context, name string) (gmail.LabelID, error) {
	_ = ctx
	_ = name
	return "Label123", nil
}

func (f *fakeClient) DeleteLabel(ctx context.Context, id gmail.LabelID) error {
	_ = ctx
	_ = id
	return nil
}

type fakeHistory struct {
	senders []string
	removed []string
	when    time.Time
}

func (h *fakeHistory) RecordDeletions(ctx context.Context, senders []string, when time.Time) error {
	_ = ctx
	h.senders = append(h.senders, senders...)
	h.when = when
	return nil
}

func (h *fakeHistory) RemoveMessages(ctx context.Context, ids []string) error {
	_ = ctx
	h.removed = append(h.removed, ids...)
	return nil
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidates(n int) []safety.Candidate {
	out := make([]safety.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, safety.Candidate{
			Message: snapshot.Message{
				ID:     fmt.Sprintf("m-%03d", i),
				Sender: fmt.Sprintf("s%d@spam.io", i%2),
			},
			Score: safety.Score{Value: 90 - i, Tier: safety.TierVerySafe},
		})
	}
	return out
}

func TestRunTrashesAndRecords(t *testing.T) {
	fake := &fakeClient{}
	hist := &fakeHistory{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &Executor{
		Client:  fake,
		Log:     slogDiscard(),
		Clock:   func() time.Time { return now },
		History: hist,
	}

	res, err := e.Run(context.Background(), candidates(3))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Trashed != 3 || res.Capped {
		t.Fatalf("result %+v", res)
	}
	if len(fake.trashed) != 3 {
		t.Fatalf("trashed %v", fake.trashed)
	}
	if len(hist.senders) != 3 || len(hist.removed) != 3 {
		t.Fatalf("history senders %v removed %v", hist.senders, hist.removed)
	}
	if !hist.when.Equal(now) {
		t.Fatalf("recorded at %v, want %v", hist.when, now)
	}
}

func TestRunLimitKeepsHighestScores(t *testing.T) {
	fake := &fakeClient{}
	e := &Executor{Client: fake, Log: slogDiscard(), Limit: 2}

	res, err := e.Run(context.Background(), candidates(5))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Trashed != 2 || !res.Capped {
		t.Fatalf("result %+v", res)
	}
	// Candidates arrive score-sorted; the cap keeps the head of the list.
	if fake.trashed[0] != "m-000" || fake.trashed[1] != "m-001" {
		t.Fatalf("trashed %v", fake.trashed)
	}
}

func TestRunDryRun(t *testing.T) {
	fake := &fakeClient{}
	hist := &fakeHistory{}
	e := &Executor{Client: fake, Log: slogDiscard(), History: hist, DryRun: true}

	res, err := e.Run(context.Background(), candidates(3))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Trashed != 0 || len(fake.trashed) != 0 {
		t.Fatalf("dry run must not trash: %+v %v", res, fake.trashed)
	}
	if len(hist.senders) != 0 {
		t.Fatalf("dry run must not record history: %v", hist.senders)
	}
}

func TestRunEmpty(t *testing.T) {
	e := &Executor{Client: &fakeClient{}, Log: slogDiscard()}
	res, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Trashed != 0 {
		t.Fatalf("result %+v", res)
	}
}

func TestRunPropagatesTrashError(t *testing.T) {
	fake := &fakeClient{trashErr: fmt.Errorf("quota exceeded")}
	e := &Executor{Client: fake, Log: slogDiscard()}
	if _, err := e.Run(context.Background(), candidates(1)); err == nil {
		t.Fatalf("expected error")
	}
}
