// internal/labelops/ops.go
package labelops

import (
	"context"
	"fmt"
	"log/slog"

	gc "github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/snapshot"
)

// Gmail allows up to 1000 IDs per batchModify call.
const batchChunk = 1000

// Service executes the mutations the label analyzers recommend:
// merging a redundant label into its survivor, deleting an abandoned
// label, and materializing a suggested label.
type Service struct {
	Client gc.Client
	Log    *slog.Logger
	Rate   interface{ Wait(context.Context) error }
	DryRun bool
}

// MergeResult reports what a merge did (or would do, under dry-run).
type MergeResult struct {
	Source string
	Target string
	Moved  int
}

// Merge relabels every message under source with target, then deletes
// the source label. Both labels must exist and be user labels.
func (s *Service) Merge(ctx context.Context, snap *snapshot.Snapshot, ix *snapshot.Index, source, target string) (MergeResult, error) {
	res := MergeResult{Source: source, Target: target}

	srcID, err := s.userLabelID(snap, source)
	if err != nil {
		return res, err
	}
	dstID, err := s.userLabelID(snap, target)
	if err != nil {
		return res, err
	}

	ids := messageIDs(ix.ByLabel[source])
	res.Moved = len(ids)
	if s.DryRun {
		s.Log.Info("dry-run merge", "source", source, "target", target, "messages", len(ids))
		return res, nil
	}

	ops := gc.ModifyOps{
		AddLabels:    []gc.LabelID{dstID},
		RemoveLabels: []gc.LabelID{srcID},
	}
	if err := s.batchModify(ctx, ids, ops); err != nil {
		return res, fmt.Errorf("merge %q into %q: %w", source, target, err)
	}
	if err := s.wait(ctx); err != nil {
		return res, err
	}
	if err := s.Client.DeleteLabel(ctx, srcID); err != nil {
		return res, fmt.Errorf("delete label %q: %w", source, err)
	}
	s.Log.Info("merged label", "source", source, "target", target, "messages", len(ids))
	return res, nil
}

// Delete removes a user label. Gmail unlabels its members as a side
// effect; the messages themselves are untouched.
func (s *Service) Delete(ctx context.Context, snap *snapshot.Snapshot, name string) error {
	id, err := s.userLabelID(snap, name)
	if err != nil {
		return err
	}
	if s.DryRun {
		s.Log.Info("dry-run delete", "label", name)
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if err := s.Client.DeleteLabel(ctx, id); err != nil {
		return fmt.Errorf("delete label %q: %w", name, err)
	}
	s.Log.Info("deleted label", "label", name)
	return nil
}

// Apply creates the named label if needed and applies it to the given
// messages. Used to materialize label suggestions.
func (s *Service) Apply(ctx context.Context, name string, ids []gc.MessageID) error {
	if s.DryRun {
		s.Log.Info("dry-run apply", "label", name, "messages", len(ids))
		return nil
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	id, err := s.Client.EnsureLabel(ctx, name)
	if err != nil {
		return fmt.Errorf("ensure label %q: %w", name, err)
	}
	ops := gc.ModifyOps{AddLabels: []gc.LabelID{id}}
	if err := s.batchModify(ctx, ids, ops); err != nil {
		return fmt.Errorf("apply label %q: %w", name, err)
	}
	s.Log.Info("applied label", "label", name, "messages", len(ids))
	return nil
}

func (s *Service) batchModify(ctx context.Context, ids []gc.MessageID, ops gc.ModifyOps) error {
	for i := 0; i < len(ids); i += batchChunk {
		j := i + batchChunk
		if j > len(ids) {
			j = len(ids)
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := s.Client.BatchModify(ctx, ids[i:j], ops); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Rate == nil {
		return nil
	}
	return s.Rate.Wait(ctx)
}

func (s *Service) userLabelID(snap *snapshot.Snapshot, name string) (gc.LabelID, error) {
	for _, l := range snap.Labels {
		if l.Name != name {
			continue
		}
		if l.System {
			return "", fmt.Errorf("label %q is a system label", name)
		}
		return gc.LabelID(l.ID), nil
	}
	return "", fmt.Errorf("label %q not found", name)
}

func messageIDs(msgs []*snapshot.Message) []gc.MessageID {
	ids := make([]gc.MessageID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, gc.MessageID(m.ID))
	}
	return ids
}
