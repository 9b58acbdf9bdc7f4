package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Client is the registry SDK entry point.
type Client struct {
	registryBase string
	httpClient   *http.Client

	principal string
	apiKey    string

	// token state, guarded by mu
	mu          sync.Mutex
	bearerToken string
	tokenExpiry time.Time // zero = token was set manually (no auto-refresh)
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithCredentials sets the principal and API key exchanged for caller tokens.
func WithCredentials(principal, apiKey string) Option {
	return func(c *Client) error {
		if principal == "" || apiKey == "" {
			return fmt.Errorf("principal and api key are required")
		}
		c.principal = principal
		c.apiKey = apiKey
		return nil
	}
}

// WithBearerToken attaches a pre-obtained caller token to every request.
// The token is never auto-refreshed.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
		return nil
	}
}

// New creates a Client connected to registryBase.
func New(registryBase string, opts ...Option) (*Client, error) {
	c := &Client{
		registryBase: registryBase,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(registryBase string, opts ...Option) *Client {
	c, err := New(registryBase, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// envelope is the registry's response shape.
type envelope struct {
	OK      bool            `json:"ok"`
	Value   json.RawMessage `json:"value"`
	Error   int             `json:"error"`
	Message string          `json:"message"`
}

// FetchToken exchanges the configured credentials for a caller token, caches
// it and returns it.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	token, expiry, err := c.fetchTokenRaw(ctx)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.bearerToken = token
	c.tokenExpiry = expiry
	c.mu.Unlock()
	return token, nil
}

func (c *Client) fetchTokenRaw(ctx context.Context) (string, time.Time, error) {
	if c.principal == "" {
		return "", time.Time{}, fmt.Errorf("no credentials configured")
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	body := map[string]string{"principal": c.principal, "api_key": c.apiKey}
	if err := c.send(ctx, http.MethodPost, "/api/v1/auth/token", "", body, &out); err != nil {
		return "", time.Time{}, fmt.Errorf("fetch token: %w", err)
	}
	// Refresh 30 s before actual expiry to avoid clock-skew failures.
	const refreshBuffer = 30 * time.Second
	exp := time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - refreshBuffer)
	return out.AccessToken, exp, nil
}

// ensureToken returns a valid bearer token, fetching a new one if the cached
// token is absent or approaching expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bearerToken != "" && (c.tokenExpiry.IsZero() || time.Now().Before(c.tokenExpiry)) {
		return c.bearerToken, nil
	}
	token, expiry, err := c.fetchTokenRaw(ctx)
	if err != nil {
		return "", err
	}
	c.bearerToken = token
	c.tokenExpiry = expiry
	return token, nil
}

// do runs an authenticated request.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, token, reqBody, out)
}

// send performs one request and decodes the envelope value into out.
func (c *Client) send(ctx context.Context, method, path, token string, reqBody, out any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.registryBase+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: resp.StatusCode, Message: string(raw)}
	}
	if !env.OK {
		code := env.Error
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Status: resp.StatusCode, Code: code, Message: env.Message}
	}
	if out != nil && len(env.Value) > 0 {
		if err := json.Unmarshal(env.Value, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func idPath(prefix string, id uint64, suffix string) string {
	return prefix + "/" + strconv.FormatUint(id, 10) + suffix
}

// Height returns the registry's current logical height.
func (c *Client) Height(ctx context.Context) (uint64, error) {
	var h uint64
	err := c.send(ctx, http.MethodGet, "/api/v1/chain/height", "", nil, &h)
	return h, err
}

// RegisterFacility registers a facility owned by the authenticated caller
// and returns its id.
func (c *Client) RegisterFacility(ctx context.Context, d FacilityDetails) (uint64, error) {
	var id uint64
	err := c.do(ctx, http.MethodPost, "/api/v1/facilities", d, &id)
	return id, err
}

// GetFacility returns the facility at id, or nil if there is none.
func (c *Client) GetFacility(ctx context.Context, id uint64) (*Facility, error) {
	var f *Facility
	if err := c.send(ctx, http.MethodGet, idPath("/api/v1/facilities", id, ""), "", nil, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateFacility overwrites the details of a facility the caller owns.
func (c *Client) UpdateFacility(ctx context.Context, id uint64, d FacilityDetails) error {
	return c.do(ctx, http.MethodPut, idPath("/api/v1/facilities", id, ""), d, nil)
}

// IsOwner reports whether principal owns the facility at id.
func (c *Client) IsOwner(ctx context.Context, id uint64, principal string) (bool, error) {
	var owner bool
	path := idPath("/api/v1/facilities", id, "/owner/"+url.PathEscape(principal))
	err := c.send(ctx, http.MethodGet, path, "", nil, &owner)
	return owner, err
}

// LastFacilityID returns the most recently issued facility id.
func (c *Client) LastFacilityID(ctx context.Context) (uint64, error) {
	var last uint64
	err := c.send(ctx, http.MethodGet, "/api/v1/facilities/stats", "", nil, &last)
	return last, err
}

// RegisterTechnician registers a technician and returns its id. A second
// registration for the same account fails with ErrAccountBound.
func (c *Client) RegisterTechnician(ctx context.Context, req RegisterTechnicianRequest) (uint64, error) {
	var id uint64
	err := c.do(ctx, http.MethodPost, "/api/v1/technicians", req, &id)
	return id, err
}

// GetTechnician returns the technician at id, or nil if there is none.
func (c *Client) GetTechnician(ctx context.Context, id uint64) (*Technician, error) {
	var t *Technician
	if err := c.send(ctx, http.MethodGet, idPath("/api/v1/technicians", id, ""), "", nil, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTechnicianByAccount returns the technician bound to account, or nil.
func (c *Client) GetTechnicianByAccount(ctx context.Context, account string) (*Technician, error) {
	var t *Technician
	path := "/api/v1/technicians/by-account/" + url.PathEscape(account)
	if err := c.send(ctx, http.MethodGet, path, "", nil, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTechnicianStatus activates or deactivates a technician. Admin only.
func (c *Client) UpdateTechnicianStatus(ctx context.Context, id uint64, active bool) error {
	return c.do(ctx, http.MethodPost, idPath("/api/v1/technicians", id, "/status"), map[string]bool{"active": active}, nil)
}

// RenewCertification sets a new certification expiry height. Admin only.
func (c *Client) RenewCertification(ctx context.Context, id uint64, newExpiry uint64) error {
	return c.do(ctx, http.MethodPost, idPath("/api/v1/technicians", id, "/renew"), map[string]uint64{"new_expiry": newExpiry}, nil)
}

// IsVerified reports whether the technician at id is verified for the
// authenticated caller at the registry's current height.
func (c *Client) IsVerified(ctx context.Context, id uint64) (bool, error) {
	var verified bool
	err := c.do(ctx, http.MethodGet, idPath("/api/v1/technicians", id, "/verified"), nil, &verified)
	return verified, err
}

// LastTechnicianID returns the most recently issued technician id.
func (c *Client) LastTechnicianID(ctx context.Context) (uint64, error) {
	var last uint64
	err := c.send(ctx, http.MethodGet, "/api/v1/technicians/stats", "", nil, &last)
	return last, err
}

// Admin returns the current compliance administrator.
func (c *Client) Admin(ctx context.Context) (string, error) {
	var admin string
	err := c.send(ctx, http.MethodGet, "/api/v1/admin", "", nil, &admin)
	return admin, err
}

// TransferAdmin hands the admin role to principal. Admin only.
func (c *Client) TransferAdmin(ctx context.Context, principal string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/admin", map[string]string{"principal": principal}, nil)
}

// Ledger returns the audit ledger length and root hash.
func (c *Client) Ledger(ctx context.Context) (*LedgerOverview, error) {
	var out LedgerOverview
	if err := c.send(ctx, http.MethodGet, "/api/v1/ledger", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLedger asks the registry to walk the full audit chain.
func (c *Client) VerifyLedger(ctx context.Context) (*LedgerVerification, error) {
	var out LedgerVerification
	if err := c.send(ctx, http.MethodGet, "/api/v1/ledger/verify", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
