package safety

import (
	"sort"
	"time"

	"github.com/mailsift/mailsift/internal/snapshot"
	"github.com/mailsift/mailsift/internal/taxonomy"
)

// Scorer runs deletion-safety analysis over a whole snapshot.
type Scorer struct {
	UserDomain string
	Clock      func() time.Time
	// MaxExceptionScore vetoes candidates whose exception scan scores
	// above it; zero disables the veto.
	MaxExceptionScore int
}

// Candidate is one message proposed for deletion.
type Candidate struct {
	Message    snapshot.Message  `json:"message"`
	Category   taxonomy.Category `json:"category"`
	Score      Score             `json:"score"`
	Exceptions ExceptionReport   `json:"exceptions"`
}

// TierSummary counts messages per safety tier.
type TierSummary struct {
	Total      int `json:"total"`
	VerySafe   int `json:"very_safe"`
	LikelySafe int `json:"likely_safe"`
	Review     int `json:"review"`
	Keep       int `json:"keep"`
}

// BulkSender is a sender whose messages score safe enough, consistently
// enough, to delete in one sweep.
type BulkSender struct {
	Sender   string  `json:"sender"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
	MinScore int     `json:"min_score"`
	MaxScore int     `json:"max_score"`
}

func (s *Scorer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// scoreAll scores every message once and reuses the results across the
// candidate, summary, and bulk views.
func (s *Scorer) scoreAll(snap *snapshot.Snapshot, profiles map[string]*snapshot.SenderProfile) []Candidate {
	now := s.now()
	out := make([]Candidate, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		cat := taxonomy.Classify(m, s.UserDomain)
		out = append(out, Candidate{
			Message:    m,
			Category:   cat,
			Score:      ScoreMessage(m, cat, profiles[m.Sender], s.UserDomain, now),
			Exceptions: DetectExceptions(m),
		})
	}
	return out
}

// Candidates returns every message scoring at or above minScore, sorted by
// score descending with a stable message-ID tie break. Messages whose
// exception scan exceeds MaxExceptionScore are dropped.
func (s *Scorer) Candidates(
	snap *snapshot.Snapshot,
	profiles map[string]*snapshot.SenderProfile,
	minScore int,
) []Candidate {
	scored := s.scoreAll(snap, profiles)
	out := make([]Candidate, 0, len(scored))
	for _, c := range scored {
		if c.Score.Value < minScore {
			continue
		}
		if s.MaxExceptionScore > 0 && c.Exceptions.Score > s.MaxExceptionScore {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score.Value == out[j].Score.Value {
			return out[i].Message.ID < out[j].Message.ID
		}
		return out[i].Score.Value > out[j].Score.Value
	})
	return out
}

// Summary tallies the whole snapshot by tier.
func (s *Scorer) Summary(snap *snapshot.Snapshot, profiles map[string]*snapshot.SenderProfile) TierSummary {
	sum := TierSummary{Total: len(snap.Messages)}
	for _, c := range s.scoreAll(snap, profiles) {
		switch c.Score.Tier {
		case TierVerySafe:
			sum.VerySafe++
		case TierLikelySafe:
			sum.LikelySafe++
		case TierReview:
			sum.Review++
		default:
			sum.Keep++
		}
	}
	return sum
}

// BulkSenders finds senders with at least minCount messages averaging
// minAvgScore or better. Results sort by average score descending, ties by
// sender address.
func (s *Scorer) BulkSenders(
	snap *snapshot.Snapshot,
	profiles map[string]*snapshot.SenderProfile,
	minCount int,
	minAvgScore float64,
) []BulkSender {
	type acc struct {
		sum, count, min, max int
	}
	bySender := map[string]*acc{}
	for _, c := range s.scoreAll(snap, profiles) {
		a := bySender[c.Message.Sender]
		if a == nil {
			a = &acc{min: c.Score.Value, max: c.Score.Value}
			bySender[c.Message.Sender] = a
		}
		a.sum += c.Score.Value
		a.count++
		if c.Score.Value < a.min {
			a.min = c.Score.Value
		}
		if c.Score.Value > a.max {
			a.max = c.Score.Value
		}
	}

	var out []BulkSender
	for sender, a := range bySender {
		if a.count < minCount {
			continue
		}
		avg := float64(a.sum) / float64(a.count)
		if avg < minAvgScore {
			continue
		}
		out = append(out, BulkSender{
			Sender:   sender,
			Count:    a.count,
			AvgScore: avg,
			MinScore: a.min,
			MaxScore: a.max,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgScore == out[j].AvgScore {
			return out[i].Sender < out[j].Sender
		}
		return out[i].AvgScore > out[j].AvgScore
	})
	return out
}
