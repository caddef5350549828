package services

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

	"foodsnap-core/internal/models"
)

// ContentSource produces personalised reminder messages
type ContentSource interface {
	FetchMessage(ctx context.Context, userID string, meal models.MealType, language string) (string, error)
}

// ContentClient calls the smart-notification endpoint of the FoodSnap API
type ContentClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

type smartNotificationRequest struct {
	UserID   string          `json:"userId"`
	MealType models.MealType `json:"mealType"`
	Language string          `json:"language"`
}

type smartNotificationResponse struct {
	Message string `json:"message"`
}

// NewContentClient creates a client whose requests are bounded by timeout
func NewContentClient(baseURL string, timeout time.Duration) *ContentClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ContentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// FetchMessage asks the API for a message tailored to the user's day
func (c *ContentClient) FetchMessage(ctx context.Context, userID string, meal models.MealType, language string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("content service not configured")
	}
	if userID == "" {
		return "", errors.New("no user for smart content")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonData, err := json.Marshal(smartNotificationRequest{UserID: userID, MealType: meal, Language: language})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/api/users/" + url.PathEscape(userID) + "/smart-notification"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: smart notification after %s", ErrNetworkTimeout, c.timeout)
		}
		return "", fmt.Errorf("failed to fetch smart notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out smartNotificationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Message == "" {
		return "", errors.New("empty smart notification message")
	}
	return out.Message, nil
}
