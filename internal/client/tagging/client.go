// Package tagging talks to the application backend: it loads the tag
// taxonomy and records tag associations for uploaded files.
package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client is the backend REST client. Every request carries the bearer token
// and the account header identifying the signed-in user.
type Client struct {
	baseURL   string
	tokens    TokenSource
	accountID func() string
	http      *http.Client
	log       logging.Logger
}

// NewClient returns a backend client rooted at baseURL. accountID is read
// per request so the client follows account switches.
func NewClient(baseURL string, tokens TokenSource, accountID func() string, log logging.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokens:    tokens,
		accountID: accountID,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log,
	}
}

// ListTagCategories loads the taxonomy: all categories with their tags
// grouped under them. Tags are fetched in one call and joined to their
// categories locally; tags with an unknown category are dropped. An
// unreachable backend degrades to an empty taxonomy so uploads can
// proceed untagged; a reachable-but-empty taxonomy is likewise a valid
// result, not an error.
func (c *Client) ListTagCategories(ctx context.Context) ([]models.TagCategory, error) {
	var cats []models.TagCategory
	if err := c.doJSON(ctx, http.MethodGet, "/tag-categories", nil, &cats); err != nil {
		c.log.Warn(ctx, "taxonomy unavailable, continuing without tags", "error", err)
		return nil, nil
	}

	var tags []models.Tag
	if err := c.doJSON(ctx, http.MethodGet, "/tags", nil, &tags); err != nil {
		c.log.Warn(ctx, "taxonomy unavailable, continuing without tags", "error", err)
		return nil, nil
	}

	byCategory := make(map[int][]models.Tag, len(cats))
	for _, t := range tags {
		byCategory[t.CategoryID] = append(byCategory[t.CategoryID], t)
	}
	for i := range cats {
		group := byCategory[cats[i].ID]
		sort.Slice(group, func(a, b int) bool { return group[a].Name < group[b].Name })
		cats[i].Tags = group
	}
	return cats, nil
}

type associationRequest struct {
	FileID string `json:"file_id"`
	TagIDs []int  `json:"tag_ids"`
}

// CreateAssociations records the tag links for an uploaded file in a single
// batched call. An empty tag set is a successful no-op; files can be
// uploaded without tags.
func (c *Client) CreateAssociations(ctx context.Context, fileID string, tagIDs []int) error {
	if len(tagIDs) == 0 {
		return nil
	}

	req := associationRequest{FileID: fileID, TagIDs: tagIDs}
	if err := c.doJSON(ctx, http.MethodPost, "/tag-associations", req, nil); err != nil {
		return fmt.Errorf("%w: %w", common.ErrAssociationFailed, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if id := c.accountID(); id != "" {
		req.Header.Set(common.AccountIDHeaderName, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
