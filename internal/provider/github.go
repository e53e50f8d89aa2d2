package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/extract"
	"github.com/JakeFAU/email-lookup/internal/fetch"
	"github.com/JakeFAU/email-lookup/internal/lookup"
)

const githubProfileBase = "https://github.com"

// GitHub resolves emails from the code host. It prefers the structured users
// API, then the user's linked website, then the rendered profile page.
type GitHub struct {
	apiBase string
	token   string
	client  fetch.Client
	logger  *zap.Logger
}

// NewGitHub builds the code-host provider.
func NewGitHub(apiBase, token string, client fetch.Client, logger *zap.Logger) *GitHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHub{
		apiBase: strings.TrimRight(apiBase, "/"),
		token:   token,
		client:  client,
		logger:  logger,
	}
}

// Name implements lookup.Provider.
func (p *GitHub) Name() lookup.Source {
	return lookup.SourceGitHub
}

// Applicable implements lookup.Provider; the code-host hint always has a value.
func (p *GitHub) Applicable(lookup.Hints) bool {
	return true
}

type githubUser struct {
	Email string `json:"email"`
	Blog  string `json:"blog"`
}

// Lookup tries the users API first. An explicit email field wins once it
// survives the system-address filter; a linked website is fetched and scanned
// next; the public profile page is the last resort.
func (p *GitHub) Lookup(ctx context.Context, hints lookup.Hints) (string, error) {
	resp, err := p.client.Get(ctx, fetch.Request{
		URL:         p.apiBase + "/users/" + hints.GitHub,
		BearerToken: p.token,
		Accept:      "application/vnd.github+json",
	})
	if err != nil {
		return "", fmt.Errorf("github users api: %w", err)
	}
	if resp.StatusCode == 200 {
		var user githubUser
		if err := json.Unmarshal(resp.Body, &user); err != nil {
			return "", fmt.Errorf("github users api: decode: %w", err)
		}
		if user.Email != "" {
			// Revalidate through the extractor so bot addresses never win.
			if email := firstOrEmpty(extract.Emails(user.Email)); email != "" {
				return email, nil
			}
		}
		if user.Blog != "" {
			if email := p.scanWebsite(ctx, user.Blog); email != "" {
				return email, nil
			}
		}
	}

	profile, err := p.client.Get(ctx, fetch.Request{
		URL:         githubProfileBase + "/" + hints.GitHub,
		BearerToken: p.token,
	})
	if err != nil {
		return "", fmt.Errorf("github profile: %w", err)
	}
	if profile.StatusCode >= 400 {
		return "", fmt.Errorf("github profile: status %d", profile.StatusCode)
	}
	return firstOrEmpty(extract.EmailsInRegions(string(profile.Body), profileRegions)), nil
}

// scanWebsite fetches the API-advertised personal site; any failure here just
// drops through to the profile-page fallback.
func (p *GitHub) scanWebsite(ctx context.Context, site string) string {
	resp, err := p.client.Get(ctx, fetch.Request{URL: site})
	if err != nil {
		p.logger.Debug("github linked website fetch failed", zap.String("url", site), zap.Error(err))
		return ""
	}
	if resp.StatusCode >= 400 {
		return ""
	}
	return firstOrEmpty(extract.Emails(string(resp.Body)))
}
