package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a GoTrue-compatible identity service over HTTP using a
// service-role key. It implements Verifier.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient builds a verifier client for the given service base URL
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type userPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	UserMetadata     struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
}

type errorPayload struct {
	Message   string `json:"msg"`
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
}

func (e *errorPayload) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrorDesc != "":
		return e.ErrorDesc
	default:
		return e.Error
	}
}

func (p *userPayload) identity() *Identity {
	return &Identity{
		UserID:           p.ID,
		Email:            p.Email,
		EmailConfirmedAt: p.EmailConfirmedAt,
		Name:             p.UserMetadata.FullName,
		AvatarURL:        p.UserMetadata.AvatarURL,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// SignUp provisions a new identity with the verifier
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*Identity, error) {
	payload := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	if name != "" {
		payload["data"] = map[string]string{"full_name": name}
	}

	resp, err := c.do(ctx, http.MethodPost, "/signup", payload)
	if err != nil {
		return nil, fmt.Errorf("verifier sign-up request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ep errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&ep)
		if resp.StatusCode == http.StatusUnprocessableEntity ||
			strings.Contains(ep.text(), "already registered") {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("verifier sign-up failed: %s", ep.text())
	}

	var up userPayload
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return nil, fmt.Errorf("failed to decode verifier response: %w", err)
	}
	return up.identity(), nil
}

// SignInWithPassword verifies a credential pair
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	resp, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", payload)
	if err != nil {
		return nil, fmt.Errorf("verifier sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ep errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&ep)
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verifier sign-in failed: %s", ep.text())
	}

	var tokenResp struct {
		User userPayload `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode verifier response: %w", err)
	}
	return tokenResp.User.identity(), nil
}

// DeleteUser removes an identity via the admin API
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/admin/users/"+userID, nil)
	if err != nil {
		return fmt.Errorf("verifier delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ep errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&ep)
		return fmt.Errorf("verifier delete failed: %s", ep.text())
	}
	return nil
}
