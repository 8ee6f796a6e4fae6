package api

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
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when the service answers 404 for a story or node.
var ErrNotFound = errors.New("not found")

// Client talks to the BhashaKahani story service. It holds the anonymous
// session token and attaches it as a bearer header on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userID     string
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UserID returns the anonymous user id, empty before authentication.
func (c *Client) UserID() string {
	return c.userID
}

// AuthenticateAnonymous bootstraps an anonymous session and stores the token
// for subsequent requests.
func (c *Client) AuthenticateAnonymous(ctx context.Context) error {
	var tok TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/anonymous", nil, nil, &tok); err != nil {
		return fmt.Errorf("anonymous auth failed: %w", err)
	}

	c.token = tok.AccessToken
	c.userID = tok.UserID

	logrus.WithFields(logrus.Fields{
		"user_id":    tok.UserID,
		"expires_in": tok.ExpiresIn,
	}).Debug("Anonymous session established")
	return nil
}

// ListStories fetches a catalog page.
func (c *Client) ListStories(ctx context.Context, filters StoryFilters) (*StoryListResponse, error) {
	params := url.Values{}
	if filters.Language != "" {
		params.Set("language", filters.Language)
	}
	if filters.AgeRange != "" {
		params.Set("age_range", filters.AgeRange)
	}
	if filters.Region != "" {
		params.Set("region", filters.Region)
	}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}
	if filters.Page > 0 {
		params.Set("page", strconv.Itoa(filters.Page))
	}
	if filters.Limit > 0 {
		params.Set("limit", strconv.Itoa(filters.Limit))
	}

	var list StoryListResponse
	if err := c.do(ctx, http.MethodGet, "/stories", params, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return &list, nil
}

// GetStory fetches story detail, with node text in the requested language.
func (c *Client) GetStory(ctx context.Context, slug, language string) (*StoryDetail, error) {
	params := url.Values{}
	if language != "" {
		params.Set("language", language)
	}

	var detail StoryDetail
	if err := c.do(ctx, http.MethodGet, "/stories/"+slug, params, nil, &detail); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("story %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch story %q: %w", slug, err)
	}
	return &detail, nil
}

// ResolveAudio asks the audio service for a playable URL for one node.
func (c *Client) ResolveAudio(ctx context.Context, nodeID, language, speaker string) (*AudioResource, error) {
	params := url.Values{}
	params.Set("language", language)
	if speaker != "" {
		params.Set("speaker", speaker)
	}

	var res AudioResource
	if err := c.do(ctx, http.MethodGet, "/audio/"+nodeID, params, nil, &res); err != nil {
		return nil, fmt.Errorf("failed to resolve audio for node %s: %w", nodeID, err)
	}
	return &res, nil
}

// MakeChoice submits a branch selection and returns the resolved next node.
// The path mirrors the backend's current (misplaced) route.
func (c *Client) MakeChoice(ctx context.Context, slug string, req MakeChoiceRequest) (*MakeChoiceResponse, error) {
	var resp MakeChoiceResponse
	if err := c.do(ctx, http.MethodPost, "/choices/"+slug+"/choices", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to make choice: %w", err)
	}
	return &resp, nil
}

// UpdateProgress reports listening position. The backend expects query
// parameters rather than a JSON body.
func (c *Client) UpdateProgress(ctx context.Context, p ProgressUpdate) error {
	params := url.Values{}
	params.Set("user_id", c.userID)
	params.Set("story_id", p.StoryID)
	params.Set("current_node_id", p.CurrentNodeID)
	params.Set("is_completed", strconv.FormatBool(p.IsCompleted))
	params.Set("time_spent_sec", strconv.Itoa(p.TimeSpentSec))

	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/progress", params, nil, &resp); err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		// Token expired or invalid; drop it so the caller can re-authenticate.
		c.token = ""
		return fmt.Errorf("unauthorized: HTTP %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
