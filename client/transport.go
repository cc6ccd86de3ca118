package client

import (
	"context"
	"io"
	"net/http"
	"strings"
)

type retryKeyType struct{}

// retryFlagKey marks a request that already went through one silent refresh,
// so a second 401 passes straight through.
var retryFlagKey = retryKeyType{}

// authTransport attaches the session's bearer token to outgoing requests and
// transparently retries a request exactly once after a 401 by refreshing the
// token pair first. Requests to the auth endpoints are never intercepted.
type authTransport struct {
	client *Client
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		if token := t.client.accessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if isAuthPath(req.URL.Path) {
		return resp, nil
	}
	if req.Context().Value(retryFlagKey) != nil {
		return resp, nil
	}

	if refreshErr := t.client.Refresh(req.Context()); refreshErr != nil {
		// Refresh failed and the session is cleared; surface the original 401.
		return resp, nil
	}

	retry, err := cloneForRetry(req, t.client.accessToken())
	if err != nil {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return t.base.RoundTrip(retry)
}

// cloneForRetry rebuilds the request with the fresh token and a rewound body.
func cloneForRetry(req *http.Request, token string) (*http.Request, error) {
	retry := req.Clone(context.WithValue(req.Context(), retryFlagKey, true))
	retry.Header.Set("Authorization", "Bearer "+token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return retry, nil
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}
