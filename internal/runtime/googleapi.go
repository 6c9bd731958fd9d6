package runtime

import (
	"context"
	"fmt"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	gc "github.com/mailsift/mailsift/internal/gmail"
)

// googleClient adapts *gmail.Service to the small interface the rest of
// mailsift uses.
type googleClient struct{ svc *gmailapi.Service }

func NewGoogleAPIClient(svc *gmailapi.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(ctx context.Context, q gc.Query, pageToken string, pageSize int) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").Q(q.Raw).MaxResults(int64(pageSize))
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, fmt.Errorf("list messages: %w", err)
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) GetMetadata(ctx context.Context, id gc.MessageID, headers []string) (gc.MessageMeta, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").
		MetadataHeaders(headers...).
		Context(ctx).Do()
	if err != nil {
		return gc.MessageMeta{}, fmt.Errorf("get metadata %s: %w", id, err)
	}
	meta := gc.MessageMeta{
		ID:       id,
		ThreadID: msg.ThreadId,
		Headers:  map[string]string{},
		Snippet:  msg.Snippet,
		Received: time.UnixMilli(msg.InternalDate).UTC(),
	}
	for _, lid := range msg.LabelIds {
		meta.LabelIDs = append(meta.LabelIDs, gc.LabelID(lid))
	}
	if msg.Payload != nil {
		for _, hd := range msg.Payload.Headers {
			meta.Headers[hd.Name] = hd.Value
		}
		meta.Multipart = msg.Payload.MimeType == "multipart/mixed"
	}
	return meta, nil
}

func (g *googleClient) BatchModify(ctx context.Context, ids []gc.MessageID, ops gc.ModifyOps) error {
	req := &gmailapi.BatchModifyMessagesRequest{Ids: toStrings(ids)}
	for _, l := range ops.AddLabels {
		req.AddLabelIds = append(req.AddLabelIds, string(l))
	}
	for _, l := range ops.RemoveLabels {
		req.RemoveLabelIds = append(req.RemoveLabelIds, string(l))
	}
	if err := g.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch modify %d messages: %w", len(ids), err)
	}
	return nil
}

func (g *googleClient) Trash(ctx context.Context, id gc.MessageID) error {
	if _, err := g.svc.Users.Messages.Trash("me", string(id)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("trash %s: %w", id, err)
	}
	return nil
}

func (g *googleClient) ListLabels(ctx context.Context) ([]gc.Label, error) {
	res, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	labels := make([]gc.Label, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, gc.Label{
			ID:            gc.LabelID(l.Id),
			Name:          l.Name,
			Type:          l.Type,
			MessagesTotal: l.MessagesTotal,
		})
	}
	return labels, nil
}

func (g *googleClient) EnsureLabel(ctx context.Context, name string) (gc.LabelID, error) {
	labels, err := g.ListLabels(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if l.Name == name {
			return l.ID, nil
		}
	}
	created, err := g.svc.Users.Labels.Create("me", &gmailapi.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gc.LabelID(created.Id), nil
}

func (g *googleClient) DeleteLabel(ctx context.Context, id gc.LabelID) error {
	if err := g.svc.Users.Labels.Delete("me", string(id)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete label %s: %w", id, err)
	}
	return nil
}

func toStrings(ids []gc.MessageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
