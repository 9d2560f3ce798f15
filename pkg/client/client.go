package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"community-overlap/internal/domain"
)

// Client is the API client for community-overlap
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// CommunityStats is the stored collection state for a community
type CommunityStats struct {
	Community        string `json:"community"`
	Batches          int    `json:"batches"`
	MaxBatchIndex    int    `json:"max_batch_index"`
	ParticipantCount int    `json:"participant_count"`
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetLatestOverlap retrieves the most recent overlap result for a pair
func (c *Client) GetLatestOverlap(communityA, communityB string) (*domain.OverlapResult, error) {
	path := fmt.Sprintf("/api/v1/overlaps/%s/%s/latest", url.PathEscape(communityA), url.PathEscape(communityB))

	var response struct {
		Data *domain.OverlapResult `json:"data"`
	}
	if err := c.get(path, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetCommunityStats retrieves the stored collection state for a community
func (c *Client) GetCommunityStats(community string) (*CommunityStats, error) {
	path := fmt.Sprintf("/api/v1/communities/%s/stats", url.PathEscape(community))

	var response struct {
		Data *CommunityStats `json:"data"`
	}
	if err := c.get(path, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetCommunityParticipants retrieves the merged participant list for a community
func (c *Client) GetCommunityParticipants(community string) ([]string, error) {
	path := fmt.Sprintf("/api/v1/communities/%s/participants", url.PathEscape(community))

	var response struct {
		Data []string `json:"data"`
	}
	if err := c.get(path, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetOutreachRun retrieves an outreach run by ID
func (c *Client) GetOutreachRun(id string) (*domain.OutreachRun, error) {
	path := fmt.Sprintf("/api/v1/outreach/%s", url.PathEscape(id))

	var response struct {
		Data *domain.OutreachRun `json:"data"`
	}
	if err := c.get(path, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLatestOutreachRun retrieves the most recently updated outreach run
func (c *Client) GetLatestOutreachRun() (*domain.OutreachRun, error) {
	var response struct {
		Data *domain.OutreachRun `json:"data"`
	}
	if err := c.get("/api/v1/outreach/latest", &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Health checks that the API server is reachable
func (c *Client) Health() error {
	return c.get("/health", &struct{}{})
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
