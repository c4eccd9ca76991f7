package keycloak

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultTimeout bounds every call to the identity provider. A refresh that hits it is a
// refresh failure.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response is kept for diagnostics
const maxErrorBody = 1024

var defaultScopes = []string{"openid", "email", "profile"}

// Client talks to the openid-connect endpoints of a Keycloak realm
type Client struct {
	issuer       string
	clientID     string
	clientSecret string
	scopes       []string
	httpClient   *http.Client
	clockSkew    time.Duration
}

var _ interfaces.IdentityProvider = &Client{}

// Option configures Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout is used as is.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithScopes(scopes ...string) Option {
	return func(c *Client) {
		c.scopes = scopes
	}
}

// WithClockSkew sets the tolerance used when validating ID token timestamps
func WithClockSkew(skew time.Duration) Option {
	return func(c *Client) {
		c.clockSkew = skew
	}
}

// New creates a client for the realm at issuer, e.g. https://idp.example.com/realms/claims
func New(issuer, clientID, clientSecret string, opts ...Option) (*Client, error) {
	if issuer == "" {
		return nil, goerr.New("issuer is required")
	}
	if _, err := url.ParseRequestURI(issuer); err != nil {
		return nil, goerr.Wrap(err, "invalid issuer URL", goerr.V("issuer", issuer))
	}
	if clientID == "" {
		return nil, goerr.New("client ID is required")
	}

	c := &Client{
		issuer:       strings.TrimRight(issuer, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       defaultScopes,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		clockSkew:    10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) endpoint(name string) string {
	return c.issuer + "/protocol/openid-connect/" + name
}

// AuthURL returns the authorization endpoint URL the browser is redirected to
func (c *Client) AuthURL(state, redirectURI string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("scope", strings.Join(c.scopes, " "))
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("state", state)

	return c.endpoint("auth") + "?" + params.Encode()
}

// tokenResponse is the token endpoint payload. ExpiresIn is in seconds.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (x *tokenResponse) toTokenSet() (*auth.TokenSet, error) {
	if x.AccessToken == "" {
		return nil, goerr.Wrap(ErrMalformedResponse, "access_token is missing")
	}
	if x.ExpiresIn <= 0 {
		return nil, goerr.Wrap(ErrMalformedResponse, "expires_in must be positive", goerr.V("expires_in", x.ExpiresIn))
	}

	return &auth.TokenSet{
		AccessToken:  x.AccessToken,
		RefreshToken: x.RefreshToken,
		IDToken:      x.IDToken,
		ExpiresIn:    time.Duration(x.ExpiresIn) * time.Second,
	}, nil
}

// ExchangeCode performs the authorization_code grant and verifies the returned ID token
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*auth.TokenSet, *auth.Identity, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	resp, err := c.postToken(ctx, data)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to exchange authorization code")
	}

	tokens, err := resp.toTokenSet()
	if err != nil {
		return nil, nil, err
	}
	if tokens.IDToken == "" {
		return nil, nil, goerr.Wrap(ErrMalformedResponse, "id_token is missing")
	}

	identity, err := c.VerifyIDToken(ctx, tokens.IDToken)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to verify ID token")
	}

	return tokens, identity, nil
}

// RefreshToken performs a single refresh_token grant
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenSet, error) {
	if refreshToken == "" {
		return nil, goerr.New("refresh token is empty")
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	resp, err := c.postToken(ctx, data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to refresh access token")
	}

	return resp.toTokenSet()
}

func (c *Client) postToken(ctx context.Context, data url.Values) (*tokenResponse, error) {
	body, err := c.postForm(ctx, c.endpoint("token"), data)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(ErrMalformedResponse, "failed to parse token response", goerr.V("error", err.Error()))
	}

	return &resp, nil
}

// Logout ends the session at the identity provider
func (c *Client) Logout(ctx context.Context, idToken string) error {
	data := url.Values{}
	data.Set("id_token_hint", idToken)

	if _, err := c.postForm(ctx, c.endpoint("logout"), data); err != nil {
		return goerr.Wrap(err, "failed to end identity provider session")
	}
	return nil
}

// postForm posts data with the client credentials and returns the body of a 2xx response
func (c *Client) postForm(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	data.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		data.Set("client_secret", c.clientSecret)
	}

	encoded := data.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("endpoint", endpoint))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = int64(len(encoded))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call identity provider", goerr.V("endpoint", endpoint))
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V("endpoint", endpoint))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, goerr.Wrap(ErrUnexpectedStatus, "identity provider returned error",
			goerr.V("endpoint", endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	return body, nil
}
