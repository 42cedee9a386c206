package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/sattwyk/repoanalyzer/internal/config"
	"github.com/sattwyk/repoanalyzer/internal/metrics"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

// APIError is returned for non-success responses from the GitHub API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the GitHub API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// installationTokenMargin is how long before expiry an installation token is replaced
const installationTokenMargin = 5 * time.Minute

// Client represents a GitHub API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
	config      *config.Config

	authMu      sync.Mutex
	token       string
	tokenExpiry time.Time // zero for personal access tokens

	mu        sync.RWMutex
	rateLimit model.RateLimitInfo
}

// NewClient creates a new GitHub API client
func NewClient(cfg *config.Config, m *metrics.Metrics) (*Client, error) {
	client := &Client{
		baseURL:     cfg.GitHubBaseURL,
		httpClient:  &http.Client{Timeout: cfg.GetFetchTimeout()},
		rateLimiter: newLimiter(cfg.APIRateLimitThreshold),
		metrics:     m,
		config:      cfg,
	}

	// Set up authentication
	if err := client.setupAuth(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to setup authentication: %w", err)
	}

	return client, nil
}

// setupAuth configures optional authentication; without credentials the
// client runs anonymously under GitHub's unauthenticated rate limit.
func (c *Client) setupAuth(ctx context.Context) error {
	if c.config.GitHubToken != "" {
		// Use Personal Access Token
		c.token = c.config.GitHubToken
		return nil
	}

	if c.config.HasGitHubApp() {
		// Use GitHub App authentication
		token, expiresAt, err := c.generateInstallationToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate installation token: %w", err)
		}
		c.token, c.tokenExpiry = token, expiresAt
	}

	return nil
}

// authToken returns the token for the next request. Installation tokens
// expire after an hour and are re-minted shortly before that.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if !c.config.HasGitHubApp() || c.config.GitHubToken != "" {
		return c.token, nil
	}
	if c.token != "" && time.Until(c.tokenExpiry) > installationTokenMargin {
		return c.token, nil
	}

	token, expiresAt, err := c.generateInstallationToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh installation token: %w", err)
	}
	c.token, c.tokenExpiry = token, expiresAt

	if c.config.IsDebug() {
		log.Printf("Refreshed GitHub App installation token, expires at %s", expiresAt.Format(time.RFC3339))
	}
	return c.token, nil
}

// generateInstallationToken generates a GitHub App installation token and
// returns it with its expiry
func (c *Client) generateInstallationToken(ctx context.Context) (string, time.Time, error) {
	jwtToken, err := c.generateAppJWT()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate app JWT: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", c.baseURL, c.config.GitHubInstallID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, fmt.Errorf("failed to get installation token: %s", string(body))
	}

	var tokenResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	// GitHub always sends expires_at; assume the documented hour otherwise
	if tokenResp.ExpiresAt.IsZero() {
		tokenResp.ExpiresAt = time.Now().Add(time.Hour)
	}

	return tokenResp.Token, tokenResp.ExpiresAt, nil
}

// generateAppJWT generates a JWT for GitHub App authentication
func (c *Client) generateAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"iss": c.config.GitHubAppID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.config.GitHubAppKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	return token.SignedString(key)
}

// GetRepository fetches repository metadata
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*model.GitHubRepository, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	var repoResp model.GitHubRepository
	if err := c.getJSON(ctx, "get_repository", endpoint, &repoResp); err != nil {
		c.metrics.RecordError("api_error", owner, repo)
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return &repoResp, nil
}

// GetBranch fetches the branch record, which carries the tip commit
func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*model.GitHubBranch, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/branches/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	var branchResp model.GitHubBranch
	if err := c.getJSON(ctx, "get_branch", endpoint, &branchResp); err != nil {
		c.metrics.RecordError("api_error", owner, repo)
		return nil, fmt.Errorf("failed to get branch %s: %w", branch, err)
	}

	return &branchResp, nil
}

// GetRepositoryTree fetches the recursive Git tree for a commit or ref
func (c *Client) GetRepositoryTree(ctx context.Context, owner, repo, sha string) (*model.GitHubTreeResponse, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(sha))

	var treeResp model.GitHubTreeResponse
	if err := c.getJSON(ctx, "get_tree", endpoint, &treeResp); err != nil {
		c.metrics.RecordError("api_error", owner, repo)
		return nil, fmt.Errorf("failed to get repository tree: %w", err)
	}

	if treeResp.Truncated {
		log.Printf("Tree for %s/%s@%s is truncated by the API (%d entries)", owner, repo, sha, len(treeResp.Tree))
	}

	return &treeResp, nil
}

// RateLimit returns the rate limit reported by the most recent response
func (c *Client) RateLimit() model.RateLimitInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimit
}

// getJSON waits for the limiter, then GETs url and decodes a 200 response into out
func (c *Client) getJSON(ctx context.Context, endpointName, url string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	return c.makeRequestWithRetry(ctx, http.MethodGet, url, func(resp *http.Response) error {
		c.metrics.RecordGitHubAPICall(endpointName, strconv.Itoa(resp.StatusCode))

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

// makeRequestWithRetry makes an HTTP request with retry logic
func (c *Client) makeRequestWithRetry(ctx context.Context, method, url string, handler func(*http.Response) error) error {
	var lastErr error
	backoff := c.config.GetRetryBackoffBase()

	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	for attempt := 0; attempt <= c.config.RetryMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		c.setHeaders(req, token)

		if c.config.IsDebug() {
			log.Printf("GitHub %s %s (attempt %d)", method, url, attempt+1)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		c.observeRateLimit(resp)

		err = handler(resp)
		resp.Body.Close()

		if err == nil {
			return nil
		}

		// Check if we should retry
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = err
			continue
		}

		// Don't retry for client errors
		return err
	}

	return fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}

// setHeaders sets the required headers for GitHub API requests
func (c *Client) setHeaders(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "repoanalyzer/1.0")
}
