// Package fetch turns the remote mailbox into the immutable snapshot the
// analyzers consume. It owns all paging, rate limiting, and metadata
// assembly; nothing downstream of it performs network I/O.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	gc "github.com/mailsift/mailsift/internal/gmail"
	"github.com/mailsift/mailsift/internal/rate"
	"github.com/mailsift/mailsift/internal/snapshot"
)

const (
	defaultPageSize    = 500
	defaultConcurrency = 8
	hoursPerDay        = 24
)

func metadataHeaders() []string {
	return []string{"From", "Subject", "Date", "List-Unsubscribe"}
}

var unsubscribeMarkers = []string{
	"unsubscribe", "opt out", "opt-out", "manage preferences",
}

// Fetcher assembles snapshots from a Gmail client.
type Fetcher struct {
	Client      gc.Client
	Limiter     rate.Limiter
	Logger      *slog.Logger
	Clock       func() time.Time
	PageSize    int
	Concurrency int
}

// NewFetcher constructs a Fetcher with sane defaults.
func NewFetcher(client gc.Client, limiter rate.Limiter, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{
		Client:      client,
		Limiter:     limiter,
		Logger:      logger,
		Clock:       time.Now,
		PageSize:    defaultPageSize,
		Concurrency: defaultConcurrency,
	}
}

// Snapshot pulls every message in the lookback window plus the label set,
// and derives the per-message flags the analyzers need. The reply flag
// comes from a second pass over sent mail: a message counts as replied
// when the user sent something in its thread after it arrived.
func (f *Fetcher) Snapshot(ctx context.Context, window time.Duration) (*snapshot.Snapshot, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	days := daysFromDuration(window)
	f.Logger.InfoContext(ctx, "fetching snapshot", slog.Int("days", days))

	apiLabels, err := f.listLabels(ctx)
	if err != nil {
		return nil, err
	}
	labelNames := make(map[gc.LabelID]string, len(apiLabels))
	for _, l := range apiLabels {
		labelNames[l.ID] = l.Name
	}

	query := gc.Query{Raw: fmt.Sprintf("newer_than:%dd -in:chats -in:sent", days)}
	metas, err := f.fetchMetadata(ctx, query)
	if err != nil {
		return nil, err
	}

	sentByThread, err := f.sentThreads(ctx, days)
	if err != nil {
		return nil, err
	}

	snap := &snapshot.Snapshot{TakenAt: f.Clock()}
	for _, l := range apiLabels {
		snap.Labels = append(snap.Labels, snapshot.Label{
			ID:           string(l.ID),
			Name:         l.Name,
			MessageCount: int(l.MessagesTotal),
			System:       l.Type == "system",
		})
	}
	for _, meta := range metas {
		snap.Messages = append(snap.Messages, buildMessage(meta, labelNames, sentByThread))
	}
	f.Logger.InfoContext(ctx, "snapshot ready",
		slog.Int("messages", len(snap.Messages)), slog.Int("labels", len(snap.Labels)))
	return snap, nil
}

func (f *Fetcher) listLabels(ctx context.Context) ([]gc.Label, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	labels, err := f.Client.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return labels, nil
}

func (f *Fetcher) fetchMetadata(ctx context.Context, query gc.Query) ([]gc.MessageMeta, error) {
	ids, err := f.listAll(ctx, query)
	if err != nil {
		return nil, err
	}
	metas := make([]gc.MessageMeta, len(ids))
	grp, ctx := errgroup.WithContext(ctx)
	limit := f.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	grp.SetLimit(limit)
	for i, id := range ids {
		i, id := i, id
		grp.Go(func() error {
			if err := f.wait(ctx); err != nil {
				return err
			}
			meta, err := f.Client.GetMetadata(ctx, id, metadataHeaders())
			if err != nil {
				return fmt.Errorf("get metadata %s: %w", id, err)
			}
			metas[i] = meta
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

func (f *Fetcher) listAll(ctx context.Context, query gc.Query) ([]gc.MessageID, error) {
	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	var (
		ids   []gc.MessageID
		token string
	)
	for {
		if err := f.wait(ctx); err != nil {
			return nil, err
		}
		page, err := f.Client.List(ctx, query, token, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" {
			return ids, nil
		}
		token = page.NextPageToken
	}
}

// sentThreads maps thread ID to the latest time the user sent mail in it.
func (f *Fetcher) sentThreads(ctx context.Context, days int) (map[string]time.Time, error) {
	query := gc.Query{Raw: fmt.Sprintf("in:sent newer_than:%dd", days)}
	ids, err := f.listAll(ctx, query)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]time.Time)
	for _, id := range ids {
		if err := f.wait(ctx); err != nil {
			return nil, err
		}
		meta, err := f.Client.GetMetadata(ctx, id, []string{"Date"})
		if err != nil {
			return nil, fmt.Errorf("get sent metadata %s: %w", id, err)
		}
		when := messageDate(meta)
		if cur, ok := latest[meta.ThreadID]; !ok || when.After(cur) {
			latest[meta.ThreadID] = when
		}
	}
	return latest, nil
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.Limiter == nil {
		return nil
	}
	return f.Limiter.Wait(ctx)
}

func buildMessage(meta gc.MessageMeta, labelNames map[gc.LabelID]string, sentByThread map[string]time.Time) snapshot.Message {
	sender, senderName := parseFrom(meta.Headers["From"])
	date := messageDate(meta)

	msg := snapshot.Message{
		ID:            string(meta.ID),
		ThreadID:      meta.ThreadID,
		Sender:        sender,
		SenderName:    senderName,
		Subject:       meta.Headers["Subject"],
		Snippet:       meta.Snippet,
		Date:          date,
		Read:          true,
		HasAttachment: meta.Multipart,
	}
	for _, lid := range meta.LabelIDs {
		switch lid {
		case "UNREAD":
			msg.Read = false
		case "STARRED":
			msg.Starred = true
		case "IMPORTANT":
			msg.Important = true
		}
		if name, ok := labelNames[lid]; ok {
			msg.Labels = append(msg.Labels, name)
		}
	}
	msg.HasUnsubscribe = hasUnsubscribe(meta)
	if sent, ok := sentByThread[meta.ThreadID]; ok && sent.After(date) {
		msg.Replied = true
	}
	return msg
}

func parseFrom(raw string) (addr, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		return strings.ToLower(raw), ""
	}
	return strings.ToLower(parsed.Address), parsed.Name
}

func messageDate(meta gc.MessageMeta) time.Time {
	if raw := meta.Headers["Date"]; raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			return t.UTC()
		}
	}
	return meta.Received
}

func hasUnsubscribe(meta gc.MessageMeta) bool {
	if meta.Headers["List-Unsubscribe"] != "" {
		return true
	}
	text := strings.ToLower(meta.Headers["Subject"] + " " + meta.Snippet)
	for _, marker := range unsubscribeMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func daysFromDuration(window time.Duration) int {
	const day = hoursPerDay * time.Hour
	days := int(window / day)
	if window%day != 0 {
		days++
	}
	if days <= 0 {
		days = 1
	}
	return days
}
