package credentials

import (
	"net/http"
)

// HeaderSource yields an Authorization header value
type HeaderSource interface {
	AuthorizationHeader() (string, error)
}

// Transport attaches the machine token to every outbound request. Requests
// fail with ErrNoToken while the source has no token.
type Transport struct {
	Source HeaderSource
	// Base is the underlying RoundTripper; http.DefaultTransport when nil
	Base http.RoundTripper
}

// NewTransport wraps base so requests carry the service's bearer token
func NewTransport(source HeaderSource, base http.RoundTripper) *Transport {
	return &Transport{Source: source, Base: base}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	header, err := t.Source.AuthorizationHeader()
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	outbound := req.Clone(req.Context())
	outbound.Header.Set("Authorization", header)

	return t.base().RoundTrip(outbound)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
