// internal/trash/executor.go
package trash

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gc "github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/safety"
)

// History records the outcome of a trash run so later scoring passes
// can count prior deletions per sender. Satisfied by *persist.DB.
type History interface {
	RecordDeletions(ctx context.Context, senders []string, when time.Time) error
	RemoveMessages(ctx context.Context, ids []string) error
}

// Executor moves scored candidates to the trash. Messages go to
// Gmail's trash, not permanent deletion, so a mistake is recoverable
// for 30 days.
type Executor struct {
	Client  gc.Client
	Log     *slog.Logger
	Rate    interface{ Wait(context.Context) error }
	Clock   func() time.Time
	History History
	DryRun  bool
	Limit   int // max messages per run; 0 means no cap
}

// Result summarizes a trash run.
type Result struct {
	Trashed int
	Capped  bool
}

// Run trashes the given candidates in order. Candidates arrive sorted
// by score, so a Limit cap keeps the safest deletions.
func (e *Executor) Run(ctx context.Context, candidates []safety.Candidate) (Result, error) {
	var res Result

	if e.Limit > 0 && len(candidates) > e.Limit {
		candidates = candidates[:e.Limit]
		res.Capped = true
	}
	if len(candidates) == 0 {
		e.Log.Info("nothing to trash")
		return res, nil
	}
	if e.DryRun {
		e.Log.Info("dry-run trash", "count", len(candidates))
		return res, nil
	}

	var (
		trashedIDs []string
		senders    []string
	)
	for _, c := range candidates {
		if err := e.wait(ctx); err != nil {
			return res, err
		}
		if err := e.Client.Trash(ctx, gc.MessageID(c.Message.ID)); err != nil {
			return res, fmt.Errorf("trash %s: %w", c.Message.ID, err)
		}
		res.Trashed++
		trashedIDs = append(trashedIDs, c.Message.ID)
		senders = append(senders, c.Message.Sender)
		e.Log.Debug("trashed message",
			"id", c.Message.ID, "sender", c.Message.Sender, "score", c.Score.Value)
	}

	if e.History != nil {
		now := e.now()
		if err := e.History.RecordDeletions(ctx, senders, now); err != nil {
			return res, fmt.Errorf("record deletions: %w", err)
		}
		if err := e.History.RemoveMessages(ctx, trashedIDs); err != nil {
			return res, fmt.Errorf("prune cache: %w", err)
		}
	}
	e.Log.Info("trash run complete", "count", res.Trashed, "capped", res.Capped)
	return res, nil
}

func (e *Executor) wait(ctx context.Context) error {
	if e.Rate == nil {
		return nil
	}
	return e.Rate.Wait(ctx)
}

func (e *Executor) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}
