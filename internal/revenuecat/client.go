// Package revenuecat is the subscription backend client. It plays the role of
// the purchases SDK: configuration, subscriber reads, offerings, purchase
// receipts and a customer-info listener hub fed by webhook events.
package revenuecat

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
	"sync"

	"foodsnap-core/internal/models"
	"foodsnap-core/internal/storage"
	"foodsnap-core/pkg/logging"

	"github.com/google/uuid"
)

// AppUserIDKey is the storage key holding the app user id across restarts
const AppUserIDKey = "revenuecat_user_id"

const anonymousPrefix = "$RCAnonymousID:"

var (
	ErrUnsupportedPlatform = errors.New("purchases are not supported on this platform")
	ErrInvalidAPIKey       = errors.New("subscription API key not configured or invalid")
	ErrNotConfigured       = errors.New("subscription backend not configured")
	ErrUserCancelled       = errors.New("purchase cancelled by user")
)

// APIError is a non-2xx answer from the subscription backend
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("subscription backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("subscription backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a RevenueCat-compatible REST API
type Client struct {
	baseURL    string
	platform   string
	httpClient *http.Client
	kv         storage.KV

	mu         sync.RWMutex
	apiKey     string
	appUserID  string
	configured bool

	listenerMu sync.Mutex
	listeners  map[int]func(*models.CustomerInfo)
	nextID     int
}

// NewClient creates an unconfigured client for the given platform
func NewClient(baseURL, platform string, kv storage.KV) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		platform:   platform,
		httpClient: &http.Client{},
		kv:         kv,
		listeners:  make(map[int]func(*models.CustomerInfo)),
	}
}

// IsValidAPIKey rejects empty keys, template placeholders and obviously short keys
func IsValidAPIKey(key string) bool {
	switch key {
	case "", "your_revenuecat_android_api_key", "your_revenuecat_ios_api_key":
		return false
	}
	return len(key) >= 10
}

// Configure prepares the client for an app user. An empty appUserID reuses
// the stored id or creates an anonymous one. Calling it twice is a no-op.
func (c *Client) Configure(ctx context.Context, apiKey, appUserID string) error {
	if c.platform != "ios" && c.platform != "android" {
		return ErrUnsupportedPlatform
	}
	if !IsValidAPIKey(apiKey) {
		return ErrInvalidAPIKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configured {
		logging.Debugf("Subscription client already configured")
		return nil
	}

	if appUserID == "" {
		stored, ok, err := c.kv.Get(ctx, AppUserIDKey)
		if err != nil {
			logging.Warnf("Could not read stored app user id: %v", err)
		}
		if ok && stored != "" {
			appUserID = stored
		} else {
			appUserID = anonymousPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
		}
	}

	if err := c.kv.Set(ctx, AppUserIDKey, appUserID); err != nil {
		logging.Warnf("Could not store app user id: %v", err)
	}

	c.apiKey = apiKey
	c.appUserID = appUserID
	c.configured = true
	logging.Infof("Subscription client configured - platform: %s, app_user_id: %s", c.platform, appUserID)
	return nil
}

// IsConfigured reports whether Configure succeeded
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

// AppUserID returns the configured app user id
func (c *Client) AppUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appUserID
}

// CustomerInfo fetches the subscriber record
func (c *Client) CustomerInfo(ctx context.Context) (*models.CustomerInfo, error) {
	userID, err := c.requireConfigured()
	if err != nil {
		return nil, err
	}

	var resp subscriberResponse
	if err := c.do(ctx, http.MethodGet, "/v1/subscribers/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toCustomerInfo(userID), nil
}

// Offerings fetches the offerings configured for the app user
func (c *Client) Offerings(ctx context.Context) (*models.Offerings, error) {
	userID, err := c.requireConfigured()
	if err != nil {
		return nil, err
	}

	var resp offeringsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/subscribers/"+url.PathEscape(userID)+"/offerings", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toOfferings(), nil
}

// PurchasePackage posts the store receipt for pkg. An empty receipt means the
// store sheet was dismissed and yields ErrUserCancelled.
func (c *Client) PurchasePackage(ctx context.Context, pkg models.Package, receipt string) (*models.CustomerInfo, error) {
	userID, err := c.requireConfigured()
	if err != nil {
		return nil, err
	}
	if receipt == "" {
		return nil, ErrUserCancelled
	}

	body := receiptRequest{
		AppUserID:                   userID,
		FetchToken:                  receipt,
		ProductID:                   pkg.Product.Identifier,
		PresentedOfferingIdentifier: pkg.OfferingIdentifier,
	}
	if pkg.Product.Price > 0 {
		body.Price = pkg.Product.Price
		body.Currency = pkg.Product.CurrencyCode
	}

	var resp subscriberResponse
	if err := c.do(ctx, http.MethodPost, "/v1/receipts", body, &resp); err != nil {
		return nil, err
	}
	return resp.toCustomerInfo(userID), nil
}

// RestorePurchases re-reads the subscriber so purchases already synced by the
// store for this user are reflected. Like PurchasePackage it does not notify
// listeners; the caller owns the returned info.
func (c *Client) RestorePurchases(ctx context.Context) (*models.CustomerInfo, error) {
	return c.CustomerInfo(ctx)
}

func (c *Client) requireConfigured() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return "", ErrNotConfigured
	}
	return c.appUserID, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	apiKey := c.apiKey
	c.mu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("X-Platform", c.platform)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call subscription backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
