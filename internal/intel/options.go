package intel

import "net/http"

// SourceOption overrides transport details shared by every HTTP-backed
// source, mainly so tests can point at a local server.
type SourceOption func(endpoint *string, client **http.Client)

// WithEndpoint replaces the provider's production endpoint.
func WithEndpoint(endpoint string) SourceOption {
	return func(ep *string, _ **http.Client) {
		if endpoint != "" {
			*ep = endpoint
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(_ *string, c **http.Client) {
		if client != nil {
			*c = client
		}
	}
}

func applySourceOptions(endpoint *string, client **http.Client, opts []SourceOption) {
	for _, opt := range opts {
		opt(endpoint, client)
	}
}
