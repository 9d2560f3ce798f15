package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"community-overlap/internal/domain"
	apperrors "community-overlap/internal/errors"
)

// ContentItem is one content item (a post) in a community listing.
type ContentItem struct {
	ID     string
	Author string
	Title  string
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type postData struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Title  string `json:"title"`
}

type commentData struct {
	Author  string          `json:"author"`
	Replies json.RawMessage `json:"replies"` // listing object, or "" when empty
}

// ListContent retrieves up to limit content items in a community under the
// given ordering, paginating as needed.
func (s *Session) ListContent(ctx context.Context, community string, ordering domain.ContentOrdering, limit int) ([]ContentItem, error) {
	path, params := listingRequest(ordering)

	var items []ContentItem
	after := ""
	for len(items) < limit {
		page := url.Values{}
		for k, v := range params {
			page.Set(k, v)
		}
		pageSize := limit - len(items)
		if pageSize > 100 {
			pageSize = 100
		}
		page.Set("limit", fmt.Sprintf("%d", pageSize))
		if after != "" {
			page.Set("after", after)
		}

		var listing thing
		endpoint := fmt.Sprintf("%s/r/%s/%s", apiBase, community, path)
		if err := s.getJSON(ctx, endpoint, page, &listing); err != nil {
			return items, err
		}

		var data listingData
		if err := json.Unmarshal(listing.Data, &data); err != nil {
			return items, apperrors.NewCollectionError("malformed listing response", err)
		}
		if len(data.Children) == 0 {
			break
		}
		for _, child := range data.Children {
			var post postData
			if err := json.Unmarshal(child.Data, &post); err != nil {
				continue
			}
			items = append(items, ContentItem{ID: post.ID, Author: post.Author, Title: post.Title})
		}
		if data.After == "" {
			break
		}
		after = data.After
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func listingRequest(ordering domain.ContentOrdering) (string, map[string]string) {
	switch ordering {
	case domain.OrderingHot:
		return "hot", nil
	case domain.OrderingTopMonth:
		return "top", map[string]string{"t": "month"}
	case domain.OrderingTopYear:
		return "top", map[string]string{"t": "year"}
	case domain.OrderingTopAll:
		return "top", map[string]string{"t": "all"}
	default:
		return "new", nil
	}
}

// ListReplyAuthors returns the authors of up to limit replies on a content
// item, with the reply tree flattened depth-first.
func (s *Session) ListReplyAuthors(ctx context.Context, community, itemID string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("depth", "10")

	var payload []thing
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s", apiBase, community, itemID)
	if err := s.getJSON(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	// The response is a pair of listings: the post itself, then the comments.
	if len(payload) < 2 {
		return nil, nil
	}

	var authors []string
	flattenAuthors(payload[1].Data, &authors, limit)
	if len(authors) > limit {
		authors = authors[:limit]
	}
	return authors, nil
}

func flattenAuthors(raw json.RawMessage, authors *[]string, limit int) {
	if len(*authors) >= limit {
		return
	}
	var data listingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}
	for _, child := range data.Children {
		if len(*authors) >= limit {
			return
		}
		if child.Kind != "t1" {
			continue // "more" stubs are not expanded
		}
		var comment commentData
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			continue
		}
		if comment.Author != "" {
			*authors = append(*authors, comment.Author)
		}
		// Replies is the empty string when there are none.
		if len(comment.Replies) > 2 {
			flattenAuthors(comment.Replies, authors, limit)
		}
	}
}

func (s *Session) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	u := endpoint
	if len(params) > 0 {
		u = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.NewCollectionError("request failed", err)
	}
	defer resp.Body.Close()

	s.rateLimiter.UpdateFromResponse(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewCollectionError("reading response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(fmt.Sprintf("status %d from %s", resp.StatusCode, endpoint))
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError(string(body))
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewCollectionError(fmt.Sprintf("status %d from %s", resp.StatusCode, endpoint), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewCollectionError("malformed response body", err)
	}
	return nil
}
