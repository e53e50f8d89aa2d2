package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/email-lookup/internal/extract"
	"github.com/JakeFAU/email-lookup/internal/fetch"
	"github.com/JakeFAU/email-lookup/internal/lookup"
)

// Regions of a profile page most likely to carry a contact address.
var profileRegions = []string{"bio", "about", "contact", "profile"}

// HuggingFace resolves emails from the public model-hub profile page.
type HuggingFace struct {
	base   string
	token  string
	client fetch.Client
}

// NewHuggingFace builds the model-hub provider.
func NewHuggingFace(base, token string, client fetch.Client) *HuggingFace {
	return &HuggingFace{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: client,
	}
}

// Name implements lookup.Provider.
func (p *HuggingFace) Name() lookup.Source {
	return lookup.SourceHuggingFace
}

// Applicable implements lookup.Provider; the hub hint always has a value.
func (p *HuggingFace) Applicable(lookup.Hints) bool {
	return true
}

// Lookup scans the public profile page for a contact address.
func (p *HuggingFace) Lookup(ctx context.Context, hints lookup.Hints) (string, error) {
	resp, err := p.client.Get(ctx, fetch.Request{
		URL:         p.base + "/" + hints.HuggingFace,
		BearerToken: p.token,
	})
	if err != nil {
		return "", fmt.Errorf("huggingface profile: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("huggingface profile: status %d", resp.StatusCode)
	}
	return firstOrEmpty(extract.EmailsInRegions(string(resp.Body), profileRegions)), nil
}
