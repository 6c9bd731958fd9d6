package labels

import (
	"fmt"
	"testing"

	"github.com/mailsift/mailsift/internal/snapshot"
)

func TestSuggestLabels(t *testing.T) {
	snap := &snapshot.Snapshot{
		Labels: []snapshot.Label{
			{ID: "INBOX", Name: "INBOX", System: true},
			{ID: "L1", Name: "receipts"},
		},
	}
	// Six unlabeled, read messages from one domain: suggestable.
	for i := 0; i < 6; i++ {
		snap.Messages = append(snap.Messages, snapshot.Message{
			ID: fmt.Sprintf("g-%d", i), Sender: "ci@github.com",
			Subject: fmt.Sprintf("Build %d", i), Read: true,
			Labels: []string{"INBOX"},
		})
	}
	// Already labeled: must not count.
	snap.Messages = append(snap.Messages, snapshot.Message{
		ID: "lab", Sender: "ci@github.com", Labels: []string{"receipts"}, Read: true,
	})
	// Unsubscribe traffic: excluded regardless of volume.
	for i := 0; i < 8; i++ {
		snap.Messages = append(snap.Messages, snapshot.Message{
			ID: fmt.Sprintf("p-%d", i), Sender: "promo@spamco.com",
			Read: true, HasUnsubscribe: true,
		})
	}
	// High volume, never read: excluded by read rate.
	for i := 0; i < 8; i++ {
		snap.Messages = append(snap.Messages, snapshot.Message{
			ID: fmt.Sprintf("n-%d", i), Sender: "noise@loud.org",
		})
	}

	got := SuggestLabels(snap, 5, 30)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got), got)
	}
	s := got[0]
	if s.Domain != "github.com" || s.Label != "Github" {
		t.Fatalf("unexpected suggestion %+v", s)
	}
	if s.Count != 6 {
		t.Fatalf("count %d, want 6", s.Count)
	}
	if s.ReadRate != 100 {
		t.Fatalf("read rate %.1f, want 100", s.ReadRate)
	}
	if len(s.SampleSubjects) != 3 {
		t.Fatalf("got %d sample subjects, want 3", len(s.SampleSubjects))
	}
}

func TestSuggestLabelsEmpty(t *testing.T) {
	if got := SuggestLabels(&snapshot.Snapshot{}, 0, 0); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %+v", got)
	}
}
