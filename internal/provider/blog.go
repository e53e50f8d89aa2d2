package provider

import (
	"context"
	"strings"

	"github.com/JakeFAU/email-lookup/internal/extract"
	"github.com/JakeFAU/email-lookup/internal/fetch"
	"github.com/JakeFAU/email-lookup/internal/lookup"
)

// Root page first, then the common feed locations.
var feedSuffixes = []string{"", "/feed", "/rss", "/atom.xml"}

// Blog resolves emails from a personal site and its feeds. It is only engaged
// when the request carries a blog URL hint.
type Blog struct {
	client fetch.Client
}

// NewBlog builds the blog provider.
func NewBlog(client fetch.Client) *Blog {
	return &Blog{client: client}
}

// Name implements lookup.Provider.
func (p *Blog) Name() lookup.Source {
	return lookup.SourceBlog
}

// Applicable implements lookup.Provider.
func (p *Blog) Applicable(hints lookup.Hints) bool {
	return hints.BlogURL != ""
}

// Lookup walks the suffix list and stops at the first page that yields an
// email. Individual suffix failures are skipped, never fatal.
func (p *Blog) Lookup(ctx context.Context, hints lookup.Hints) (string, error) {
	base := strings.TrimRight(hints.BlogURL, "/")
	for _, suffix := range feedSuffixes {
		resp, err := p.client.Get(ctx, fetch.Request{URL: base + suffix})
		if err != nil || resp.StatusCode >= 400 {
			continue
		}
		if email := firstOrEmpty(extract.Emails(string(resp.Body))); email != "" {
			return email, nil
		}
	}
	return "", nil
}
