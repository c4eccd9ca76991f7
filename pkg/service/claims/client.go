package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultTimeout applies to every claims API call including reading the body
	DefaultTimeout = 30 * time.Second

	organizationHeader = "X-Organization-Id"
)

// Client calls the claims API on behalf of a signed-in user
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.ClaimsAPI = &Client{}

// Option is a functional option for Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a claims API client for baseURL, e.g. http://claims-api:8080
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("claims API base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, goerr.Wrap(err, "invalid claims API base URL", goerr.V("base_url", baseURL))
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) ListClaims(ctx context.Context, caller interfaces.Caller, opt interfaces.ListClaimsOption) (*model.ClaimsPage, error) {
	query := url.Values{}
	if opt.Status != "" {
		query.Set("status", opt.Status.String())
	}
	if opt.Page > 0 {
		query.Set("page", strconv.Itoa(opt.Page))
	}
	if opt.Size > 0 {
		query.Set("size", strconv.Itoa(opt.Size))
	}

	var page model.ClaimsPage
	if err := c.doJSON(ctx, caller, http.MethodGet, "/api/claims", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetClaim(ctx context.Context, caller interfaces.Caller, claimID string) (*model.Claim, error) {
	var claim model.Claim
	if err := c.doJSON(ctx, caller, http.MethodGet, claimPath(claimID), nil, nil, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (c *Client) GetClaimEvents(ctx context.Context, caller interfaces.Caller, claimID string) ([]*model.ClaimEvent, error) {
	var events []*model.ClaimEvent
	if err := c.doJSON(ctx, caller, http.MethodGet, claimPath(claimID, "events"), nil, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetStats(ctx context.Context, caller interfaces.Caller) (*model.ClaimStats, error) {
	var stats model.ClaimStats
	if err := c.doJSON(ctx, caller, http.MethodGet, "/api/claims/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) CreateClaim(ctx context.Context, caller interfaces.Caller, req *model.CreateClaimRequest) (*model.Claim, error) {
	var claim model.Claim
	if err := c.doJSON(ctx, caller, http.MethodPost, "/api/claims", nil, req, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// PerformAction runs a lifecycle transition. A nil claim with no error means the claims API
// answered 204.
func (c *Client) PerformAction(ctx context.Context, caller interfaces.Caller, claimID string, action types.ClaimAction) (*model.Claim, error) {
	var claim *model.Claim
	if err := c.doJSON(ctx, caller, http.MethodPost, claimPath(claimID, action.String()), nil, nil, &claim); err != nil {
		return nil, err
	}
	return claim, nil
}

func (c *Client) ListNotes(ctx context.Context, caller interfaces.Caller, claimID string) ([]*model.ClaimNote, error) {
	var notes []*model.ClaimNote
	if err := c.doJSON(ctx, caller, http.MethodGet, claimPath(claimID, "notes"), nil, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) AddNote(ctx context.Context, caller interfaces.Caller, claimID string, req *model.CreateNoteRequest) (*model.ClaimNote, error) {
	var note model.ClaimNote
	if err := c.doJSON(ctx, caller, http.MethodPost, claimPath(claimID, "notes"), nil, req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// Export streams the CSV export of the caller's organization
func (c *Client) Export(ctx context.Context, caller interfaces.Caller) (io.ReadCloser, error) {
	resp, err := c.do(ctx, caller, http.MethodGet, "/api/claims/export", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func claimPath(claimID string, sub ...string) string {
	path := "/api/claims/" + url.PathEscape(claimID)
	for _, s := range sub {
		path += "/" + s
	}
	return path
}

func (c *Client) doJSON(ctx context.Context, caller interfaces.Caller, method, path string, query url.Values, body, out any) error {
	resp, err := c.do(ctx, caller, method, path, query, body)
	if err != nil {
		return err
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode claims API response",
			goerr.V("method", method),
			goerr.V("path", path),
		)
	}
	return nil
}

// do sends the request and maps error statuses. On success the caller owns the body.
func (c *Client) do(ctx context.Context, caller interfaces.Caller, method, path string, query url.Values, body any) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal request body", goerr.V("path", path))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("path", path))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+caller.AccessToken)
	}
	if caller.OrganizationID != "" {
		req.Header.Set(organizationHeader, caller.OrganizationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call claims API",
			goerr.V("method", method),
			goerr.V("path", path),
		)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer safe.Close(ctx, resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, goerr.Wrap(ErrUnauthorized, "claims API rejected access token", goerr.V("path", path))
	case http.StatusForbidden:
		return nil, goerr.Wrap(ErrForbidden, "claims API denied access",
			goerr.V("path", path),
			goerr.V("organization_id", caller.OrganizationID),
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read claims API error response",
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode),
		)
	}

	return nil, goerr.Wrap(newAPIError(resp.StatusCode, data), "claims API returned error",
		goerr.V("method", method),
		goerr.V("path", path),
	)
}
