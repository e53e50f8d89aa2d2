// Package fetch issues bounded outbound GETs for the provider chain.
package fetch

import "context"

// Request describes one outbound GET.
type Request struct {
	URL string
	// BearerToken is added as an Authorization header when set.
	BearerToken string
	// Accept overrides the Accept header when set.
	Accept string
}

// Response carries the terminal HTTP response. Any status code is a valid
// response; only transport-level failures surface as errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client fetches a single URL, following redirects, retrying transient
// failures and honoring per-host politeness.
type Client interface {
	Get(ctx context.Context, req Request) (Response, error)
}
