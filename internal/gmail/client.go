package gmail

import "context"

// Client is the narrow Gmail surface required by mailsift.
type Client interface {
	List(ctx context.Context, q Query, pageToken string, pageSize int) (ListPage, error)
	GetMetadata(ctx context.Context, id MessageID, headers []string) (MessageMeta, error)
	BatchModify(ctx context.Context, ids []MessageID, ops ModifyOps) error
	Trash(ctx context.Context, id MessageID) error
	ListLabels(ctx context.Context) ([]Label, error)
	EnsureLabel(ctx context.Context, name string) (LabelID, error)
	DeleteLabel(ctx context.Context, id LabelID) error
}
