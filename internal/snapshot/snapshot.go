// Package snapshot holds the immutable message/label records one analysis
// run operates on, and the aggregation index shared by every analyzer.
package snapshot

import (
	"strings"
	"time"
)

// Message is a single mailbox message as captured into a snapshot. It is
// never mutated after the snapshot is built.
type Message struct {
	ID         string
	ThreadID   string
	Sender     string // normalized (lowercase) address
	SenderName string
	Subject    string
	Snippet    string
	Date       time.Time
	Labels     []string // label names, user and system alike

	Read           bool
	Starred        bool
	Important      bool
	HasAttachment  bool
	HasUnsubscribe bool
	// Replied is true when the owning user sent a message in the same
	// thread after this one arrived.
	Replied bool
}

// Label describes one mailbox label. Only non-system labels are eligible
// for coherence and merge analysis.
type Label struct {
	ID           string
	Name         string
	MessageCount int
	System       bool
}

// Snapshot is the frozen input to one analysis run.
type Snapshot struct {
	Messages []Message
	Labels   []Label
	TakenAt  time.Time
}

// SenderProfile aggregates one sender's history within a snapshot, plus the
// caller-supplied prior-deletion count. Built once per run, never persisted.
type SenderProfile struct {
	Sender         string
	Count          int
	ReadCount      int
	ReplyCount     int
	PriorDeletions int
	FirstSeen      time.Time
	LastSeen       time.Time
}

// Domain returns the part of the sender address after the final "@", or ""
// when the address has none.
func (m Message) Domain() string {
	return domainOf(m.Sender)
}

func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.Trim(strings.ToLower(addr[at+1:]), ". ")
}

// HasUserLabel reports whether the message carries at least one of the
// given non-system labels.
func (m Message) HasUserLabel(userLabels map[string]bool) bool {
	for _, l := range m.Labels {
		if userLabels[l] {
			return true
		}
	}
	return false
}

// UserLabels returns the names of the snapshot's non-system labels.
func (s *Snapshot) UserLabels() map[string]bool {
	out := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		if !l.System {
			out[l.Name] = true
		}
	}
	return out
}
