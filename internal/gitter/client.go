package gitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const roomCacheKey = "room:%s"

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// NetworkError reports a transport-level failure before any response
// arrived.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Message is a chat message as returned by the REST and streaming APIs.
type Message struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Sent time.Time `json:"sent"`
	From User      `json:"fromUser"`
}

// User identifies a chat account.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Room is a chat room resolved from its URI.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Client talks to the chat service's REST API. It carries the bearer token
// and a short-lived cache for room lookups.
type Client struct {
	logger    *logrus.Logger
	client    *http.Client
	apiURL    string
	streamURL string
	token     string
	cache     *cache.Cache
}

func NewClient(logger *logrus.Logger, apiURL, streamURL, token string) *Client {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}

	return &Client{
		logger:    logger,
		client:    client,
		apiURL:    strings.TrimRight(apiURL, "/"),
		streamURL: strings.TrimRight(streamURL, "/"),
		token:     token,
		cache:     cache.New(5*time.Minute, 10*time.Second),
	}
}

// Request performs one API call. The payload, if non-nil, is sent as JSON;
// the response body is decoded into out when out is non-nil. Connection
// failures surface as *NetworkError and non-2xx responses as *StatusError.
func (c *Client) Request(ctx context.Context, method, path string, payload, out interface{}) error {
	url := path
	if strings.HasPrefix(path, "/") {
		url = c.apiURL + path
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, URL: url, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
	}

	return nil
}

// SendMessage posts text to a room and returns the created message.
func (c *Client) SendMessage(ctx context.Context, roomID, text string) (*Message, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room ID cannot be empty")
	}

	payload := map[string]string{"text": text}

	var msg Message
	path := fmt.Sprintf("/rooms/%s/chatMessages", roomID)
	if err := c.Request(ctx, http.MethodPost, path, payload, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// LookupRoom resolves a room by its URI. Results are cached so repeated
// lookups during a run do not hit the API.
func (c *Client) LookupRoom(ctx context.Context, uri string) (*Room, error) {
	if uri == "" {
		return nil, fmt.Errorf("room URI cannot be empty")
	}

	key := fmt.Sprintf(roomCacheKey, uri)
	if cached, found := c.cache.Get(key); found {
		c.logger.Debugf("Found cached room for %s", uri)
		return cached.(*Room), nil
	}

	var room Room
	if err := c.Request(ctx, http.MethodPost, "/rooms", map[string]string{"uri": uri}, &room); err != nil {
		return nil, err
	}

	c.cache.Set(key, &room, cache.DefaultExpiration)
	return &room, nil
}

// CurrentUser returns the account the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var users []User
	if err := c.Request(ctx, http.MethodGet, "/user", nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no user returned for token")
	}
	return &users[0], nil
}
