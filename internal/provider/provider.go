// Package provider implements the external email sources consulted by the
// resolution pipeline: the model-hub profile, the code-host profile, and a
// personal blog/feed.
package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/fetch"
	"github.com/JakeFAU/email-lookup/internal/lookup"
)

// Config carries per-source endpoints and credentials.
type Config struct {
	GitHubAPIBase    string
	GitHubToken      string
	HuggingFaceBase  string
	HuggingFaceToken string
}

// Build constructs the provider chain in the given priority order. Order is
// configuration, not code structure, so reordering never touches this package.
func Build(order []string, cfg Config, client fetch.Client, logger *zap.Logger) ([]lookup.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := make([]lookup.Provider, 0, len(order))
	for _, name := range order {
		switch lookup.Source(name) {
		case lookup.SourceHuggingFace:
			providers = append(providers, NewHuggingFace(cfg.HuggingFaceBase, cfg.HuggingFaceToken, client))
		case lookup.SourceGitHub:
			providers = append(providers, NewGitHub(cfg.GitHubAPIBase, cfg.GitHubToken, client, logger))
		case lookup.SourceBlog:
			providers = append(providers, NewBlog(client))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return providers, nil
}

func firstOrEmpty(emails []string) string {
	if len(emails) == 0 {
		return ""
	}
	return emails[0]
}
