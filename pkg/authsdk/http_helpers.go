package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

func (c *SDKClient) url(path string) string {
	return c.BaseURL + path
}

// requestOption decorates an outgoing request, usually with credentials.
type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withBearer(token string) requestOption {
	return withHeader("Authorization", "Bearer "+token)
}

func withBasicAuth(id, secret string) requestOption {
	return func(r *http.Request) { r.SetBasicAuth(id, secret) }
}

// formBody encodes form as the request body.
func formBody(form url.Values) (io.Reader, requestOption) {
	return strings.NewReader(form.Encode()), withHeader("Content-Type", "application/x-www-form-urlencoded")
}

// jsonBody encodes v as the request body. A nil v sends no body.
func jsonBody(v any) (io.Reader, requestOption, error) {
	if v == nil {
		return nil, func(*http.Request) {}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), withHeader("Content-Type", "application/json"), nil
}

// do sends one request through the client's HTTP client.
func (c *SDKClient) do(ctx context.Context, method, path string, body io.Reader, opts ...requestOption) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// postClientForm posts form with the client's Basic credentials.
func (c *SDKClient) postClientForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	body, contentType := formBody(form)
	return c.do(ctx, http.MethodPost, path, body, contentType, withBasicAuth(c.ClientID, c.ClientSecret))
}

// decodeJSON decodes a JSON response into the target, or returns an
// *OAuth2Error when the status is not the expected one.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, data)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus drains the response and returns an *OAuth2Error unless it has
// the expected status.
func checkStatus(resp *http.Response, expectedStatus int) error {
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, data)
	}
	return nil
}
