// Package authclient talks to the remote identity platform that field staff
// accounts live in. Every call takes an explicit session: the shared session
// carries the console's own service context, while credential issuance always
// runs through a fresh isolated session so the operator's login survives the
// creation of somebody else's.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings for reaching the identity platform.
type Config struct {
	BaseURL string
	// APIKey is the publishable key sent on every request.
	APIKey  string
	Timeout time.Duration
}

// Client is the identity platform REST client.
type Client struct {
	baseURL string
	apiKey  string
	// httpc serves shared-session calls.
	httpc *http.Client
	// isolated strips any ambient Authorization header; all issuance
	// traffic goes through it.
	isolated *http.Client
	// session is the shared long-lived session. IssueCredential never
	// reads or writes it.
	session *Session
	log     zerolog.Logger
}

// New builds a Client with a fresh shared session.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		httpc:    &http.Client{Timeout: timeout},
		isolated: &http.Client{Timeout: timeout, Transport: &stripAuthTransport{}},
		session:  NewSession(nil),
		log:      log,
	}
}

// Session returns the client's shared session.
func (c *Client) Session() *Session { return c.session }

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// Token fields are present when the platform auto-confirms the account.
	// An isolated session discards them.
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *struct {
		ID string `json:"id"`
	} `json:"user,omitempty"`
}

type apiError struct {
	Message string `json:"msg"`
	Code    string `json:"error_code"`
}

// IssueCredential registers a new identity and returns its opaque id.
// The call runs through a throwaway isolated session and the stripping
// transport: the platform's response tokens are dropped and the shared
// session is untouched.
func (c *Client) IssueCredential(ctx context.Context, email, credential string) (string, error) {
	if email == "" || credential == "" {
		return "", domain.ErrCredentialPolicy
	}

	sess := NewIsolatedSession()

	resp, err := c.do(ctx, c.isolated, sess, http.MethodPost, "/signup", signUpRequest{Email: email, Password: credential})
	if err != nil {
		return "", fmt.Errorf("issue credential: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("issue credential: %w: %w", domain.ErrTransport, err)
	}

	if resp.StatusCode >= 400 {
		return "", classifySignUpError(resp.StatusCode, body)
	}

	var out signUpResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("issue credential: decode response: %w", domain.ErrNoIdentity)
	}

	id := out.ID
	if id == "" && out.User != nil {
		id = out.User.ID
	}
	if id == "" {
		// Success status with no usable id is fatal, never retried here.
		return "", fmt.Errorf("issue credential: %w", domain.ErrNoIdentity)
	}

	// The new identity's tokens are dropped with the throwaway session.
	sess.storeTokens(out.AccessToken, out.RefreshToken)

	c.log.Info().Str("identity_id", id).Msg("credential issued")
	return id, nil
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn authenticates the console's service context against the platform
// and persists the tokens in the shared session.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	resp, err := c.do(ctx, c.httpc, c.session, http.MethodPost, "/token?grant_type=password", signInRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("sign in: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("sign in: decode response: %w", err)
	}
	c.session.storeTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// do sends one JSON request in the context of the given session. The
// session's own access token is the only Authorization source.
func (c *Client) do(ctx context.Context, httpc *http.Client, sess *Session, method, path string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if token, ok := sess.AccessToken(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return httpc.Do(req)
}

// classifySignUpError maps platform responses onto the failure taxonomy.
func classifySignUpError(status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	switch {
	case status == http.StatusConflict, ae.Code == "user_already_exists", ae.Code == "email_exists":
		return fmt.Errorf("issue credential: %w", domain.ErrEmailTaken)
	case status == http.StatusUnprocessableEntity, ae.Code == "weak_password":
		return fmt.Errorf("issue credential: %w", domain.ErrCredentialPolicy)
	case status == http.StatusBadRequest && ae.Code == "validation_failed":
		return fmt.Errorf("issue credential: %w", domain.ErrCredentialPolicy)
	default:
		return fmt.Errorf("issue credential: status %d: %w", status, domain.ErrTransport)
	}
}
