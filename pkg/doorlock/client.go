// Package doorlock is a client for the ESP32 door controller HTTP API.
package doorlock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Status is the controller state reported by GET /status
type Status struct {
	DoorLocked   bool   `json:"doorLocked"`
	CardDetected bool   `json:"cardDetected"`
	LastCardID   string `json:"lastCardId"`
	IsAuthorized bool   `json:"isAuthorized"`
}

// Result is the generic acknowledgement of /control and /add-card
type Result map[string]interface{}

type controlRequest struct {
	Unlock bool `json:"unlock,omitempty"`
	Lock   bool `json:"lock,omitempty"`
}

type addCardRequest struct {
	CardID string `json:"cardId"`
}

// Client talks to one door controller
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the controller at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: http}
}

// Status returns the controller state
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/status")
	if err := check(resp, err, "status"); err != nil {
		return nil, err
	}
	return &status, nil
}

// Unlock opens the door
func (c *Client) Unlock(ctx context.Context) (Result, error) {
	return c.control(ctx, controlRequest{Unlock: true})
}

// Lock closes the door
func (c *Client) Lock(ctx context.Context) (Result, error) {
	return c.control(ctx, controlRequest{Lock: true})
}

func (c *Client) control(ctx context.Context, body controlRequest) (Result, error) {
	var result Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/control")
	if err := check(resp, err, "control"); err != nil {
		return nil, err
	}
	return result, nil
}

// AuthorizedCards lists the card ids stored on the controller. Both a bare
// JSON array and {"cards": [...]} are accepted.
func (c *Client) AuthorizedCards(ctx context.Context) ([]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/authorized-cards")
	if err := check(resp, err, "authorized-cards"); err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body())
	var cards []string
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &cards); err != nil {
			return nil, fmt.Errorf("failed to decode card list: %w", err)
		}
		return cards, nil
	}

	var wrapped struct {
		Cards []string `json:"cards"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode card list: %w", err)
	}
	return wrapped.Cards, nil
}

// AddCard stores cardID (hex, no spaces) on the controller
func (c *Client) AddCard(ctx context.Context, cardID string) (Result, error) {
	var result Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addCardRequest{CardID: cardID}).
		SetResult(&result).
		Post("/add-card")
	if err := check(resp, err, "add-card"); err != nil {
		return nil, err
	}
	return result, nil
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("door controller %s failed: %w", op, err)
	}
	if resp.IsError() {
		return fmt.Errorf("door controller %s returned %d", op, resp.StatusCode())
	}
	return nil
}
