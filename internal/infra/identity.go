package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
)

// ErrNoCurrentUser is returned by FreshToken when nobody is signed in.
var ErrNoCurrentUser = errors.New("identity: no current user")

// tokenRefreshSkew refreshes ID tokens this long before they expire.
const tokenRefreshSkew = 5 * time.Minute

// ProviderError is a non-2xx answer from the identity REST API.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity: provider returned %d: %s", e.Status, e.Message)
}

// IdentityClientConfig holds endpoints and credentials for the REST API.
type IdentityClientConfig struct {
	APIKey         string
	BaseURL        string // https://identitytoolkit.googleapis.com/v1
	SecureTokenURL string // https://securetoken.googleapis.com/v1
	RatePerSecond  int
}

// IdentityClient talks to the Identity Toolkit REST API and keeps the
// process-wide current user, the way the web SDK does in a browser tab.
type IdentityClient struct {
	cfg        IdentityClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *CircuitBreaker
	now        func() time.Time

	mu          sync.RWMutex
	current     *session.Identity
	persistence session.PersistenceMode
	onSignIn    func(ctx context.Context, id *session.Identity)
}

func NewIdentityClient(cfg IdentityClientConfig, cb *CircuitBreaker) *IdentityClient {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &IdentityClient{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(perSecond), perSecond),
		cb:          cb,
		now:         time.Now,
		persistence: session.PersistSession,
	}
}

var _ session.IdentityProvider = (*IdentityClient)(nil)

// OnSignIn registers fn to receive every new identity while persistence is on.
func (c *IdentityClient) OnSignIn(fn func(ctx context.Context, id *session.Identity)) {
	c.mu.Lock()
	c.onSignIn = fn
	c.mu.Unlock()
}

func (c *IdentityClient) SetPersistence(mode session.PersistenceMode) {
	c.mu.Lock()
	c.persistence = mode
	c.mu.Unlock()
}

func (c *IdentityClient) CurrentUser() *session.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	u := *c.current
	return &u
}

func (c *IdentityClient) SignOut() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// ── Sign-in flows ────────────────────────────────────────────────────────────

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

func (c *IdentityClient) SignInAnonymously(ctx context.Context) (*session.Identity, error) {
	var resp signInResponse
	if err := c.postJSON(ctx, c.cfg.BaseURL+"/accounts:signUp", map[string]any{"returnSecureToken": true}, &resp); err != nil {
		return nil, err
	}
	return c.adopt(ctx, resp.LocalID, "", true, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*session.Identity, error) {
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	var resp signInResponse
	if err := c.postJSON(ctx, c.cfg.BaseURL+"/accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}
	return c.adopt(ctx, resp.LocalID, resp.Email, false, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (c *IdentityClient) SignInWithRefreshToken(ctx context.Context, refreshToken string) (*session.Identity, error) {
	resp, err := c.refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	email := ""
	anonymous := true
	if cur := c.CurrentUser(); cur != nil && cur.UID == resp.UserID {
		email, anonymous = cur.Email, cur.Anonymous
	}
	return c.adopt(ctx, resp.UserID, email, anonymous, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (c *IdentityClient) FreshToken(ctx context.Context) (string, error) {
	cur := c.CurrentUser()
	if cur == nil {
		return "", ErrNoCurrentUser
	}
	if c.now().Add(tokenRefreshSkew).Before(cur.ExpiresAt) {
		return cur.IDToken, nil
	}
	id, err := c.SignInWithRefreshToken(ctx, cur.RefreshToken)
	if err != nil {
		return "", err
	}
	return id.IDToken, nil
}

func (c *IdentityClient) refresh(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	var resp refreshResponse
	err := c.do(ctx, c.cfg.SecureTokenURL+"/token", "application/x-www-form-urlencoded", []byte(form.Encode()), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *IdentityClient) adopt(ctx context.Context, uid, email string, anonymous bool, idToken, refreshToken, expiresIn string) *session.Identity {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	id := &session.Identity{
		UID:          uid,
		Email:        email,
		Anonymous:    anonymous,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    c.now().Add(time.Duration(secs) * time.Second),
	}

	c.mu.Lock()
	c.current = id
	hook := c.onSignIn
	persist := c.persistence == session.PersistSession
	c.mu.Unlock()

	if hook != nil && persist {
		hook(ctx, id)
	}
	out := *id
	return &out
}

// ── Transport ────────────────────────────────────────────────────────────────

func (c *IdentityClient) postJSON(ctx context.Context, endpoint string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("identity: marshal request: %w", err)
	}
	return c.do(ctx, endpoint, "application/json", b, out)
}

type providerErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// do sends one request through the rate limiter and circuit breaker. Only
// transport failures and 5xx answers count against the breaker.
func (c *IdentityClient) do(ctx context.Context, endpoint, contentType string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("identity: rate limiter: %w", err)
	}

	var status int
	var respBody []byte
	cbErr := c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(c.cfg.APIKey), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("identity: create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("identity: http request: %w", err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		respBody, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("identity: read response: %w", err)
		}
		if status >= 500 {
			return &ProviderError{Status: status, Message: string(respBody)}
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}

	if status >= 400 {
		return classifyProviderError(status, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}
	return nil
}

// classifyProviderError maps invalid-API-key answers to ErrInvalidCredentialConfig.
func classifyProviderError(status int, body []byte) error {
	var pe providerErrorBody
	msg := string(body)
	if err := json.Unmarshal(body, &pe); err == nil && pe.Error.Message != "" {
		msg = pe.Error.Message
		for _, d := range pe.Error.Details {
			if d.Reason == "API_KEY_INVALID" {
				msg = d.Reason + ": " + msg
			}
		}
	}
	upper := strings.ToUpper(msg)
	if strings.Contains(upper, "API_KEY_INVALID") ||
		strings.Contains(upper, "API KEY NOT VALID") ||
		strings.Contains(upper, "INVALID_API_KEY") {
		log.Warn().Int("status", status).Msg("identity: api key rejected by provider")
		return fmt.Errorf("%w: %s", apierror.ErrInvalidCredentialConfig, msg)
	}
	return &ProviderError{Status: status, Message: msg}
}
