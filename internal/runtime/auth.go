// Package runtime wires authentication, the Gmail API adapter, and the
// process-wide logger for the CLIs.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/mailsift/mailsift/internal/gmail"
)

type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeModify
)

func (s Scope) apiScope() string {
	if s == ScopeModify {
		return gmailapi.GmailModifyScope
	}
	return gmailapi.GmailReadonlyScope
}

// NewGmailClient authenticates through the gmailctl credential directory
// (credentials.json plus cached token) and returns the narrow client the
// analyzers use.
func NewGmailClient(ctx context.Context, cfgDir string, scope Scope) (gc.Client, error) {
	svc, err := (localcred.Provider{}).Service(ctx, cfgDir)
	if err != nil {
		return nil, fmt.Errorf("authenticate via %s: %w", cfgDir, err)
	}
	return NewGoogleAPIClient(svc), nil
}

// NewGmailClientFromToken builds a client from a previously issued OAuth
// token file, for environments where the gmailctl browser flow is not
// available.
func NewGmailClientFromToken(ctx context.Context, tokenPath string, scope Scope) (gc.Client, error) {
	raw, err := os.ReadFile(filepath.Clean(tokenPath))
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", tokenPath, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", tokenPath, err)
	}
	src := oauth2.StaticTokenSource(&tok)
	svc, err := gmailapi.NewService(ctx,
		option.WithTokenSource(src),
		option.WithScopes(scope.apiScope()),
	)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGoogleAPIClient(svc), nil
}

// DefaultLogger writes text logs to stderr at info level.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
