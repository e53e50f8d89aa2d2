package lookup

import (
	"strings"
	"time"
)

// Source identifies which provider produced an email.
type Source string

// Provider sources, in default priority order.
const (
	SourceHuggingFace Source = "huggingface"
	SourceGitHub      Source = "github"
	SourceBlog        Source = "blog"
)

// Request carries the caller-supplied hints for one resolution.
type Request struct {
	Username     string
	HuggingFace  string
	GitHub       string
	BlogURL      string
	ForceRefresh bool
}

// Hints is the normalized hint triple handed to providers. The code-host and
// model-hub hints default to the bare username when not supplied separately.
type Hints struct {
	Username    string
	HuggingFace string
	GitHub      string
	BlogURL     string
}

// Hints normalizes the request into the triple used for fingerprinting and
// provider lookups.
func (r Request) Hints() Hints {
	hf := strings.TrimSpace(r.HuggingFace)
	if hf == "" {
		hf = strings.TrimSpace(r.Username)
	}
	gh := strings.TrimSpace(r.GitHub)
	if gh == "" {
		gh = strings.TrimSpace(r.Username)
	}
	return Hints{
		Username:    strings.TrimSpace(r.Username),
		HuggingFace: hf,
		GitHub:      gh,
		BlogURL:     strings.TrimSpace(r.BlogURL),
	}
}

// Record is a persisted resolution outcome. Email and Source are nil when a
// full provider run found nothing; that negative outcome is remembered too.
type Record struct {
	Key       string
	Email     *string
	Source    *string
	CreatedAt time.Time
}

// Result is the pipeline's answer for one request.
type Result struct {
	Key    string
	Email  *string
	Source *string
}
