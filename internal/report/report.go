// Package report assembles analyzer output into the human and JSON
// reports the CLIs print.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mailsift/mailsift/internal/labels"
	"github.com/mailsift/mailsift/internal/safety"
	"github.com/mailsift/mailsift/internal/snapshot"
	"github.com/mailsift/mailsift/internal/taxonomy"
	"github.com/mailsift/mailsift/internal/timeline"
)

const subjectDisplayLimit = 60

// Audit summarizes label health for a snapshot.
type Audit struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	SnapshotTakenAt time.Time               `json:"snapshot_taken_at"`
	Total           int                     `json:"total"`
	InboxReadRate   float64                 `json:"inbox_read_rate"`
	Labels          []labels.Metrics        `json:"labels"`
	Overlaps        []labels.OverlapPair    `json:"overlaps"`
	Recommendations []labels.Recommendation `json:"recommendations"`
	Suggestions     []labels.Suggestion     `json:"suggestions"`
}

// AuditOptions tunes the audit analyzers.
type AuditOptions struct {
	OverlapThreshold float64
	Recommend        labels.Config
	Clock            func() time.Time
}

// BuildAudit runs the label analyzers over an indexed snapshot.
func BuildAudit(snap *snapshot.Snapshot, ix *snapshot.Index, opts AuditOptions) Audit {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	threshold := opts.OverlapThreshold
	if threshold <= 0 {
		threshold = labels.DefaultOverlapThreshold
	}
	cfg := opts.Recommend
	if cfg == (labels.Config{}) {
		cfg = labels.DefaultConfig()
	}

	analyzer := labels.Analyzer{}
	metrics := analyzer.AnalyzeAll(snap, ix)
	overlaps := labels.DetectOverlaps(snap, ix, threshold)
	return Audit{
		GeneratedAt:     clock(),
		SnapshotTakenAt: snap.TakenAt,
		Total:           ix.Total,
		InboxReadRate:   ix.InboxReadRate(),
		Labels:          metrics,
		Overlaps:        overlaps,
		Recommendations: labels.Recommend(metrics, overlaps, cfg),
		Suggestions:     labels.SuggestLabels(snap, 0, 0),
	}
}

// PrintAudit writes a readable audit report to the provided writer.
func PrintAudit(rep Audit, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "mailsift audit — %d messages, inbox read rate %.1f%%\n",
		rep.Total, rep.InboxReadRate)
	if len(rep.Labels) > 0 {
		builder.WriteString("\nLabels:\n")
		for _, m := range rep.Labels {
			state := ""
			if m.Abandoned {
				state = " (abandoned)"
			}
			fmt.Fprintf(&builder,
				"  %-30s %5d msgs  coherence %5d  engagement %+6.1f%s\n",
				m.Label, m.Count, m.Coherence, m.Engagement, state)
		}
	}
	if len(rep.Overlaps) > 0 {
		builder.WriteString("\nOverlapping labels:\n")
		for _, p := range rep.Overlaps {
			fmt.Fprintf(&builder, "  %s ~ %s  jaccard %.2f (%d shared)\n",
				p.Source, p.Target, p.Ratio, p.Shared)
		}
	}
	if len(rep.Recommendations) > 0 {
		builder.WriteString("\nRecommendations:\n")
		for _, r := range rep.Recommendations {
			fmt.Fprintf(&builder, "  %-8s %-40s %s\n",
				r.Kind, strings.Join(r.Labels, " -> "), r.Rationale)
		}
	}
	if len(rep.Suggestions) > 0 {
		builder.WriteString("\nSuggested labels:\n")
		for _, s := range rep.Suggestions {
			fmt.Fprintf(&builder, "  %-20s %4d msgs from %s (read %.0f%%)\n",
				s.Label, s.Count, s.Domain, s.ReadRate)
		}
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// Stats summarizes taxonomy and time-of-day activity for a snapshot.
type Stats struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	SnapshotTakenAt time.Time               `json:"snapshot_taken_at"`
	Total           int                     `json:"total"`
	Categories      []taxonomy.CategoryStat `json:"categories"`
	TopSenders      []SenderStat            `json:"top_senders"`
	FocusBlocks     []timeline.DaySummary   `json:"focus_blocks,omitempty"`
	BusiestSlots    []timeline.Slot         `json:"busiest_slots"`
	Distribution    timeline.Distribution   `json:"distribution"`
}

// SenderStat ranks noisy senders.
type SenderStat struct {
	Sender         string `json:"sender"`
	Count          int    `json:"count"`
	PreviewSubject string `json:"preview_subject"`
}

// StatsOptions tunes the stats report.
type StatsOptions struct {
	UserDomain string
	TopN       int
	Clock      func() time.Time
}

// BuildStats runs the taxonomy and timeline analyzers.
func BuildStats(snap *snapshot.Snapshot, ix *snapshot.Index, opts StatsOptions) Stats {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = 20
	}
	patterns := timeline.Analyze(ix)
	return Stats{
		GeneratedAt:     clock(),
		SnapshotTakenAt: snap.TakenAt,
		Total:           ix.Total,
		Categories:      taxonomy.Stats(snap, opts.UserDomain),
		TopSenders:      rankSenders(ix, topN),
		FocusBlocks:     patterns.FocusBlocks(),
		BusiestSlots:    patterns.BusiestSlots(topN),
		Distribution:    patterns.DayDistribution(),
	}
}

// PrintStats writes a readable stats report to the provided writer.
func PrintStats(rep Stats, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "mailsift stats — %d messages\n", rep.Total)
	if len(rep.Categories) > 0 {
		builder.WriteString("\nCategories:\n")
		for _, c := range rep.Categories {
			fmt.Fprintf(&builder,
				"  %-14s %5d msgs  %4d unread  read %5.1f%%  %d senders\n",
				c.Category, c.Count, c.Unread, c.ReadRate, c.UniqueSenders)
		}
	}
	if len(rep.TopSenders) > 0 {
		builder.WriteString("\nTop senders:\n")
		for _, s := range rep.TopSenders {
			fmt.Fprintf(&builder, "  %-40s %4d %s\n",
				s.Sender, s.Count, truncate(s.PreviewSubject, subjectDisplayLimit))
		}
	}
	if len(rep.BusiestSlots) > 0 {
		builder.WriteString("\nBusiest hours:\n")
		for _, slot := range rep.BusiestSlots {
			fmt.Fprintf(&builder, "  %-14s %4d msgs\n", slot, slot.Count)
		}
	}
	if len(rep.FocusBlocks) > 0 {
		builder.WriteString("\nQuiet blocks (focus candidates):\n")
		for _, day := range rep.FocusBlocks {
			for _, b := range day.Blocks {
				fmt.Fprintf(&builder, "  %-9s %02d:00-%02d:00 %4d msgs\n",
					day.Day, b.StartHour, b.EndHour, b.Count)
			}
		}
	}
	d := rep.Distribution
	fmt.Fprintf(&builder,
		"\nBusiest day %s, quietest %s; weekday avg %.1f vs weekend avg %.1f\n",
		d.BusiestDay, d.QuietestDay, d.WeekdayAvg, d.WeekendAvg)
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// Deletion summarizes a scoring pass over the snapshot.
type Deletion struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     safety.TierSummary  `json:"summary"`
	Candidates  []safety.Candidate  `json:"candidates"`
	BulkSenders []safety.BulkSender `json:"bulk_senders,omitempty"`
}

// PrintDeletion writes a readable deletion report to the provided writer.
func PrintDeletion(rep Deletion, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	var builder strings.Builder
	s := rep.Summary
	fmt.Fprintf(&builder,
		"mailsift delete — %d messages: %d very safe, %d likely safe, %d review, %d keep\n",
		s.Total, s.VerySafe, s.LikelySafe, s.Review, s.Keep)
	if len(rep.Candidates) > 0 {
		builder.WriteString("\nCandidates:\n")
		for _, c := range rep.Candidates {
			fmt.Fprintf(&builder, "  [%3d %-11s] %-40s %s\n",
				c.Score.Value, c.Score.Tier, c.Message.Sender,
				truncate(c.Message.Subject, subjectDisplayLimit))
			for _, f := range c.Score.Factors {
				fmt.Fprintf(&builder, "      %+4d %s\n", f.Impact, f.Name)
			}
		}
	}
	if len(rep.BulkSenders) > 0 {
		builder.WriteString("\nBulk senders:\n")
		for _, b := range rep.BulkSenders {
			fmt.Fprintf(&builder, "  %-40s %4d msgs  avg %5.1f (min %d, max %d)\n",
				b.Sender, b.Count, b.AvgScore, b.MinScore, b.MaxScore)
		}
	}
	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("write human report: %w", err)
	}
	return nil
}

// WriteJSON serializes a report to disk.
func WriteJSON(rep any, path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("path must not be empty")
	}
	clean = filepath.Clean(clean)
	if filepath.IsAbs(clean) {
		return fmt.Errorf("output path must be relative, got %s", clean)
	}
	if strings.HasPrefix(clean, "..") {
		return fmt.Errorf("output path %s escapes working directory", clean)
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	abs := filepath.Join(wd, clean)
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if encodeErr := enc.Encode(rep); encodeErr != nil {
		return fmt.Errorf("encode report: %w", encodeErr)
	}
	return nil
}

func rankSenders(ix *snapshot.Index, topN int) []SenderStat {
	stats := make([]SenderStat, 0, len(ix.BySender))
	for sender, msgs := range ix.BySender {
		st := SenderStat{Sender: sender, Count: len(msgs)}
		if len(msgs) > 0 {
			st.PreviewSubject = msgs[0].Subject
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Sender < stats[j].Sender
		}
		return stats[i].Count > stats[j].Count
	})
	if topN < len(stats) {
		stats = stats[:topN]
	}
	return stats
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
