// Package auth verifies bearer tokens and resolves the calling user.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthenticatedUser identifies a verified caller. Email is the persistence key
// for all intent and wrapper records.
type AuthenticatedUser struct {
	UID   string
	Email string
}

// AuthenticationError carries the HTTP status the server should respond with.
type AuthenticationError struct {
	Message    string
	StatusCode int
}

func (e *AuthenticationError) Error() string { return e.Message }

// Verifier validates a bearer token and returns the user it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*AuthenticatedUser, error)
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", &AuthenticationError{Message: "missing Authorization header", StatusCode: http.StatusUnauthorized}
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", &AuthenticationError{Message: "malformed Authorization header", StatusCode: http.StatusUnauthorized}
	}
	return parts[1], nil
}

// TokenInfoVerifier verifies OAuth access tokens against a tokeninfo endpoint.
type TokenInfoVerifier struct {
	endpoint   string
	httpClient *http.Client
}

// NewTokenInfoVerifier creates a verifier for the given tokeninfo endpoint.
func NewTokenInfoVerifier(endpoint string) *TokenInfoVerifier {
	return &TokenInfoVerifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	ExpiresIn     string `json:"expires_in"`
}

// Verify checks the token with the identity provider and returns the caller.
func (v *TokenInfoVerifier) Verify(ctx context.Context, token string) (*AuthenticatedUser, error) {
	endpoint := v.endpoint + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, &AuthenticationError{Message: "identity provider unreachable", StatusCode: http.StatusServiceUnavailable}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthenticationError{Message: "identity provider unreachable", StatusCode: http.StatusServiceUnavailable}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &AuthenticationError{Message: "invalid or expired token", StatusCode: http.StatusUnauthorized}
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &AuthenticationError{Message: "invalid tokeninfo response", StatusCode: http.StatusUnauthorized}
	}
	if info.Email == "" {
		return nil, &AuthenticationError{Message: "token has no email claim", StatusCode: http.StatusUnauthorized}
	}

	return &AuthenticatedUser{UID: info.Sub, Email: info.Email}, nil
}

// StaticVerifier maps fixed tokens to users. Test use only.
type StaticVerifier struct {
	Users map[string]*AuthenticatedUser
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (*AuthenticatedUser, error) {
	user, ok := v.Users[token]
	if !ok {
		return nil, &AuthenticationError{Message: "invalid or expired token", StatusCode: http.StatusUnauthorized}
	}
	return user, nil
}
