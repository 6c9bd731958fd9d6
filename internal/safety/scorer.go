// Package safety scores how safe each message is to delete. The score is a
// constructed heuristic index, not a probability: fixed, named weights are
// summed and clamped to [0, 100], and the contributing factors are kept so
// callers can explain any score.
package safety

import (
	"strings"
	"time"

	"github.com/mailsift/mailsift/internal/snapshot"
	"github.com/mailsift/mailsift/internal/taxonomy"
)

// Tier buckets a score by fixed thresholds.
type Tier string

const (
	TierVerySafe   Tier = "Very Safe"   // >= 90
	TierLikelySafe Tier = "Likely Safe" // >= 70
	TierReview     Tier = "Review"      // >= 50
	TierKeep       Tier = "Keep"
)

// Factor weights. Each applies at most once per message.
const (
	weightUnsubscribe   = 20
	weightUnread        = 15
	weightPriorDeletion = 10
	weightAged          = 10 // older than 30 days
	weightNoAttachment  = 5
	weightMarketing     = 5

	penaltyReplied    = -40
	penaltyAttachment = -30
	penaltyOwnDomain  = -25
	penaltyFlagged    = -20 // starred or important
	penaltyRecent     = -15 // younger than 7 days
)

const (
	agedAfterDays    = 30
	recentWithinDays = 7
)

// Factor is one named, signed contribution to a score.
type Factor struct {
	Name   string `json:"name"`
	Impact int    `json:"impact"`
}

// Score is the deletion-safety assessment of one message.
type Score struct {
	Value   int      `json:"value"`
	Tier    Tier     `json:"tier"`
	Factors []Factor `json:"factors"`
}

// TierFor maps a clamped score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= 90:
		return TierVerySafe
	case score >= 70:
		return TierLikelySafe
	case score >= 50:
		return TierReview
	default:
		return TierKeep
	}
}

// ScoreMessage computes the deletion-safety score for one message. The
// result is fully determined by its inputs: identical inputs always yield
// the identical value and factor list. When now precedes the message
// timestamp both age factors contribute nothing.
func ScoreMessage(
	msg snapshot.Message,
	category taxonomy.Category,
	profile *snapshot.SenderProfile,
	userDomain string,
	now time.Time,
) Score {
	var factors []Factor
	add := func(name string, impact int) {
		factors = append(factors, Factor{Name: name, Impact: impact})
	}

	if msg.HasUnsubscribe {
		add("has unsubscribe link", weightUnsubscribe)
	}
	if !msg.Read {
		add("unread since receipt", weightUnread)
	}
	if profile != nil && profile.PriorDeletions > 0 {
		add("sender previously deleted", weightPriorDeletion)
	}

	ageKnown := !msg.Date.IsZero() && !now.Before(msg.Date)
	ageDays := 0
	if ageKnown {
		ageDays = int(now.Sub(msg.Date).Hours() / 24)
	}
	if ageKnown && ageDays > agedAfterDays {
		add("older than 30 days", weightAged)
	}
	if !msg.HasAttachment {
		add("no attachment", weightNoAttachment)
	}
	if category == taxonomy.Marketing {
		add("marketing category", weightMarketing)
	}

	if msg.Replied {
		add("user replied in thread", penaltyReplied)
	}
	if msg.HasAttachment {
		add("has attachment", penaltyAttachment)
	}
	if fromOwnDomain(msg.Sender, userDomain) {
		add("sender on own domain", penaltyOwnDomain)
	}
	if msg.Starred || msg.Important {
		add("starred or important", penaltyFlagged)
	}
	if ageKnown && ageDays < recentWithinDays {
		add("younger than 7 days", penaltyRecent)
	}

	sum := 0
	for _, f := range factors {
		sum += f.Impact
	}
	value := clamp(sum, 0, 100)
	return Score{Value: value, Tier: TierFor(value), Factors: factors}
}

func fromOwnDomain(sender, userDomain string) bool {
	userDomain = strings.ToLower(strings.TrimSpace(userDomain))
	if userDomain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(sender), "@"+userDomain)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
