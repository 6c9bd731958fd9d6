package snapshot

import "fmt"

// IntegrityError reports a message referencing a label absent from the
// snapshot's label collection. This is a data fault in the input, not a
// recoverable analysis condition.
type IntegrityError struct {
	MessageID string
	Label     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("message %s references unknown label %q", e.MessageID, e.Label)
}

// Index is the grouped view of one snapshot. It holds references into the
// snapshot's message slice; it does not own the messages and must not be
// shared across concurrent runs.
type Index struct {
	BySender map[string][]*Message
	ByLabel  map[string][]*Message
	// DayHour counts messages per weekday (time.Weekday order, Sunday
	// first) and hour of day.
	DayHour [7][24]int

	Total     int
	ReadTotal int
}

// BuildIndex groups the snapshot's messages by sender, by label, and by
// weekday/hour in a single pass. Every message lands in exactly one sender
// bucket and one bucket per label it carries, so bucket sums always match
// the message count. A label name on a message that the snapshot's label
// collection does not contain yields an IntegrityError.
func BuildIndex(s *Snapshot) (*Index, error) {
	known := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		known[l.Name] = true
	}

	ix := &Index{
		BySender: make(map[string][]*Message),
		ByLabel:  make(map[string][]*Message),
		Total:    len(s.Messages),
	}
	for i := range s.Messages {
		msg := &s.Messages[i]
		ix.BySender[msg.Sender] = append(ix.BySender[msg.Sender], msg)
		for _, name := range msg.Labels {
			if !known[name] {
				return nil, &IntegrityError{MessageID: msg.ID, Label: name}
			}
			ix.ByLabel[name] = append(ix.ByLabel[name], msg)
		}
		ix.DayHour[int(msg.Date.Weekday())][msg.Date.Hour()]++
		if msg.Read {
			ix.ReadTotal++
		}
	}
	return ix, nil
}

// InboxReadRate is the snapshot-wide read rate in percent.
func (ix *Index) InboxReadRate() float64 {
	if ix.Total == 0 {
		return 0
	}
	return float64(ix.ReadTotal) / float64(ix.Total) * 100
}

// SenderProfiles derives per-sender aggregates, folding in the
// caller-supplied prior-deletion history.
func (ix *Index) SenderProfiles(history map[string]int) map[string]*SenderProfile {
	profiles := make(map[string]*SenderProfile, len(ix.BySender))
	for sender, msgs := range ix.BySender {
		p := &SenderProfile{Sender: sender, PriorDeletions: history[sender]}
		for _, m := range msgs {
			p.Count++
			if m.Read {
				p.ReadCount++
			}
			if m.Replied {
				p.ReplyCount++
			}
			if p.FirstSeen.IsZero() || m.Date.Before(p.FirstSeen) {
				p.FirstSeen = m.Date
			}
			if m.Date.After(p.LastSeen) {
				p.LastSeen = m.Date
			}
		}
		profiles[sender] = p
	}
	return profiles
}

// MatrixTotal sums the day/hour matrix; it always equals Total.
func (ix *Index) MatrixTotal() int {
	total := 0
	for d := range ix.DayHour {
		for h := range ix.DayHour[d] {
			total += ix.DayHour[d][h]
		}
	}
	return total
}
