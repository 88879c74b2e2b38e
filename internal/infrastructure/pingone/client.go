package pingone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

const defaultCallTimeout = 30 * time.Second

type Config struct {
	AuthBaseURL   string
	APIBaseURL    string
	EnvironmentID string
	ClientID      string
	ClientSecret  string
	CallTimeout   time.Duration
}

// Client talks to the PingOne management API on behalf of a worker
// application. Tokens come from the client-credentials grant and are
// refreshed transparently; every call is bounded by CallTimeout so one
// stalled record cannot hang a whole batch.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens oauth2.TokenSource
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.EnvironmentID == "" {
		return nil, fmt.Errorf("%w: PingOne environment id is not set", domain.ErrConfigMissing)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: PingOne worker credentials are not set", domain.ErrAuthUnavailable)
	}
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = "https://auth.pingone.com"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.pingone.com/v1"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimRight(cfg.AuthBaseURL, "/") + "/" + cfg.EnvironmentID + "/as/token",
	}

	base := &http.Client{Timeout: cfg.CallTimeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tokens := cc.TokenSource(ctx)

	return &Client{
		cfg:    cfg,
		http:   oauth2.NewClient(ctx, tokens),
		tokens: tokens,
		logger: logger,
	}, nil
}

// Authenticate forces an initial token fetch so orchestration-fatal
// credential problems surface before any record is touched.
func (c *Client) Authenticate(_ context.Context) error {
	if _, err := c.tokens.Token(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthUnavailable, err)
	}
	return nil
}

func (c *Client) LookupByAttribute(ctx context.Context, attribute, value string) ([]domain.DirectoryUser, error) {
	q := url.Values{}
	q.Set("filter", fmt.Sprintf("%s eq %q", attribute, value))

	var page usersPage
	status, body, err := c.do(ctx, http.MethodGet, c.usersURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.apiFailure("lookup user", status, body)
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode user lookup: %w", err)
	}

	users := make([]domain.DirectoryUser, 0, len(page.Embedded.Users))
	for _, u := range page.Embedded.Users {
		users = append(users, u.toDomain())
	}
	return users, nil
}

func (c *Client) Create(ctx context.Context, user domain.DirectoryUser) (domain.DirectoryUser, error) {
	status, body, err := c.do(ctx, http.MethodPost, c.usersURL(), fromDomain(user))
	if err != nil {
		return domain.DirectoryUser{}, err
	}
	if status == http.StatusCreated || status == http.StatusOK {
		var created apiUser
		if err := json.Unmarshal(body, &created); err != nil {
			return domain.DirectoryUser{}, fmt.Errorf("decode created user: %w", err)
		}
		return created.toDomain(), nil
	}
	if isUniquenessViolation(status, body) {
		return domain.DirectoryUser{}, fmt.Errorf("%w: %s", domain.ErrUniquenessConflict, user.Username)
	}
	return domain.DirectoryUser{}, c.apiFailure("create user", status, body)
}

func (c *Client) Update(ctx context.Context, id string, patch domain.DirectoryUser) (domain.DirectoryUser, error) {
	status, body, err := c.do(ctx, http.MethodPatch, c.usersURL()+"/"+url.PathEscape(id), fromDomain(patch))
	if err != nil {
		return domain.DirectoryUser{}, err
	}
	if status == http.StatusNotFound {
		return domain.DirectoryUser{}, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
	}
	if status != http.StatusOK {
		return domain.DirectoryUser{}, c.apiFailure("update user", status, body)
	}

	var updated apiUser
	if err := json.Unmarshal(body, &updated); err != nil {
		return domain.DirectoryUser{}, fmt.Errorf("decode updated user: %w", err)
	}
	return updated.toDomain(), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	status, body, err := c.do(ctx, http.MethodDelete, c.usersURL()+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return c.apiFailure("delete user", status, body)
	}
	return nil
}

// ListUsers walks the paged collection, optionally scoped to one
// population. It follows the HAL next links until the directory runs out
// of pages.
func (c *Client) ListUsers(ctx context.Context, populationID string) ([]domain.DirectoryUser, error) {
	q := url.Values{}
	q.Set("limit", "100")
	if populationID != "" {
		q.Set("filter", fmt.Sprintf("population.id eq %q", populationID))
	}
	next := c.usersURL() + "?" + q.Encode()

	var users []domain.DirectoryUser
	for next != "" {
		status, body, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, c.apiFailure("list users", status, body)
		}

		var page usersPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode user page: %w", err)
		}
		for _, u := range page.Embedded.Users {
			users = append(users, u.toDomain())
		}
		next = page.Links.Next.Href
	}
	return users, nil
}

func (c *Client) usersURL() string {
	return strings.TrimRight(c.cfg.APIBaseURL, "/") + "/environments/" + c.cfg.EnvironmentID + "/users"
}

func (c *Client) do(ctx context.Context, method, target string, payload any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return 0, nil, fmt.Errorf("%w: %v", domain.ErrAuthUnavailable, err)
		}
		return 0, nil, fmt.Errorf("call directory: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read directory response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) apiFailure(op string, status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		c.logger.Debug("directory call failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("code", apiErr.Code))
		return fmt.Errorf("%s: %s (HTTP %d)", op, apiErr.Message, status)
	}
	return fmt.Errorf("%s: HTTP %d", op, status)
}

func isUniquenessViolation(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) != nil {
		return false
	}
	for _, d := range apiErr.Details {
		if strings.EqualFold(d.Code, "UNIQUENESS_VIOLATION") {
			return true
		}
	}
	return false
}
