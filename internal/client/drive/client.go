// Package drive implements the cloud drive client: drive resolution, folder
// resolution with on-demand creation, and file upload. Large files go
// through a session-based chunked transfer; small files and the one-shot
// fallback path use a plain content PUT.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

const (
	// simpleUploadLimit is the largest file sent with a single content PUT.
	// Anything bigger goes through an upload session.
	simpleUploadLimit = 4 << 20

	// chunkSize is the upload session fragment size. Must be a multiple of
	// 320 KiB per the drive API contract.
	chunkSize = 10 * 320 * 1024
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// UploadError carries the HTTP status and provider detail of a failed
// transfer. It unwraps to ErrUploadFailed so callers can classify it.
type UploadError struct {
	Status int
	Detail string
}

func (e *UploadError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upload failed: status %d", e.Status)
	}
	return fmt.Sprintf("upload failed: status %d: %s", e.Status, e.Detail)
}

func (e *UploadError) Unwrap() error { return common.ErrUploadFailed }

// Client talks to the cloud drive REST API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	log     logging.Logger

	driveID string
}

// NewClient returns a drive client rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, log logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 5 * time.Minute},
		log:     log,
	}
}

type driveList struct {
	Value []struct {
		ID        string `json:"id"`
		DriveType string `json:"driveType"`
	} `json:"value"`
}

type driveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

// ResolveDrive finds the drive used for uploads and pins its ID for the
// lifetime of the client. Personal drives are preferred; otherwise the first
// listed drive wins.
func (c *Client) ResolveDrive(ctx context.Context) error {
	var list driveList
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/me/drives", nil, &list); err != nil {
		return fmt.Errorf("%w: list drives: %w", common.ErrNoDriveFound, err)
	}
	if len(list.Value) == 0 {
		return fmt.Errorf("%w: account has no drives", common.ErrNoDriveFound)
	}

	c.driveID = list.Value[0].ID
	for _, d := range list.Value {
		if d.DriveType == "personal" {
			c.driveID = d.ID
			break
		}
	}
	c.log.Debug(ctx, "resolved drive", "drive_id", c.driveID)
	return nil
}

// FindOrCreateFolder resolves the drive item for the given drive-relative
// folder path, creating missing ancestors one segment at a time. An empty
// path resolves to the drive root. Every failure wraps ErrFolderResolution.
func (c *Client) FindOrCreateFolder(ctx context.Context, remotePath string) (*models.RemoteFolder, error) {
	if c.driveID == "" {
		if err := c.ResolveDrive(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrFolderResolution, err)
		}
	}

	item, err := c.getItemByPath(ctx, remotePath)
	if err == nil {
		return &models.RemoteFolder{ID: item.ID, Name: item.Name}, nil
	}

	// Walk down from the root creating whatever is missing.
	parent, err := c.getItemByPath(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: resolve drive root: %w", common.ErrFolderResolution, err)
	}

	walked := ""
	for _, seg := range Segments(remotePath) {
		if walked == "" {
			walked = seg
		} else {
			walked += "/" + seg
		}

		item, err := c.getItemByPath(ctx, walked)
		if err == nil {
			parent = item
			continue
		}

		created, err := c.createFolder(ctx, parent.ID, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: create %q: %w", common.ErrFolderResolution, walked, err)
		}
		parent = created
	}

	return &models.RemoteFolder{ID: parent.ID, Name: parent.Name}, nil
}

// UploadFile transfers the local file at srcPath into the folder, stored
// under name. Name collisions on the remote side are resolved by renaming,
// never by overwriting.
func (c *Client) UploadFile(ctx context.Context, folder *models.RemoteFolder, srcPath, name string) (*models.RemoteFile, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", common.ErrLocalIO, srcPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", common.ErrLocalIO, srcPath, err)
	}

	if fi.Size() <= simpleUploadLimit {
		return c.uploadSimple(ctx, folder, f, fi.Size(), name)
	}
	return c.uploadChunked(ctx, folder, f, fi.Size(), name)
}

func (c *Client) uploadSimple(ctx context.Context, folder *models.RemoteFolder, r io.Reader, size int64, name string) (*models.RemoteFile, error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s:/%s:/content?@microsoft.graph.conflictBehavior=rename",
		c.baseURL, c.driveID, folder.ID, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, r)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	var item driveItem
	if err := c.send(req, &item); err != nil {
		return nil, err
	}
	return &models.RemoteFile{ID: item.ID, Name: item.Name, WebURL: item.WebURL, Size: item.Size}, nil
}

type uploadSession struct {
	UploadURL string `json:"uploadUrl"`
}

func (c *Client) uploadChunked(ctx context.Context, folder *models.RemoteFolder, f *os.File, size int64, name string) (*models.RemoteFile, error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s:/%s:/createUploadSession",
		c.baseURL, c.driveID, folder.ID, url.PathEscape(name))

	body := map[string]any{
		"item": map[string]any{
			"@microsoft.graph.conflictBehavior": "rename",
			"name":                              name,
		},
	}
	var sess uploadSession
	if err := c.doJSON(ctx, http.MethodPost, u, body, &sess); err != nil {
		// Single in-process fallback: when the session cannot be created,
		// retry once as a plain content PUT.
		c.log.Warn(ctx, "upload session unavailable, falling back to simple upload",
			"name", name, "error", err)
		return c.uploadSimple(ctx, folder, io.NewSectionReader(f, 0, size), size, name)
	}

	var item driveItem
	for off := int64(0); off < size; off += chunkSize {
		n := chunkSize
		if off+int64(n) > size {
			n = int(size - off)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, sess.UploadURL,
			io.NewSectionReader(f, off, int64(n)))
		if err != nil {
			return nil, fmt.Errorf("build chunk request: %w", err)
		}
		req.ContentLength = int64(n)
		req.Header.Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", off, off+int64(n)-1, size))

		// The session URL is pre-authorized; no bearer header on chunks.
		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn(ctx, "upload session transfer failed, falling back to simple upload",
				"name", name, "error", err)
			return c.uploadSimple(ctx, folder, io.NewSectionReader(f, 0, size), size, name)
		}
		data, rerr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if rerr != nil {
			return nil, fmt.Errorf("%w: read chunk response: %w", common.ErrUploadFailed, rerr)
		}
		if resp.StatusCode >= 400 {
			c.log.Warn(ctx, "upload session rejected a fragment, falling back to simple upload",
				"name", name, "status", resp.StatusCode)
			return c.uploadSimple(ctx, folder, io.NewSectionReader(f, 0, size), size, name)
		}
		if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(data, &item); err == nil && item.ID != "" {
				return &models.RemoteFile{ID: item.ID, Name: item.Name, WebURL: item.WebURL, Size: item.Size}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: session ended without a completed item", common.ErrUploadFailed)
}

func (c *Client) getItemByPath(ctx context.Context, remotePath string) (*driveItem, error) {
	u := c.baseURL + "/drives/" + c.driveID + "/root"
	if remotePath != "" {
		u += ":/" + escapePath(remotePath)
	}
	var item driveItem
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) createFolder(ctx context.Context, parentID, name string) (*driveItem, error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s/children", c.baseURL, c.driveID, parentID)
	// Rename on conflict tolerates a concurrent creation race; the caller
	// re-resolves by path on the next lookup either way.
	body := map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "rename",
	}
	var item driveItem
	if err := c.doJSON(ctx, http.MethodPost, u, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	token, err := c.tokens.AccessToken(req.Context())
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", common.ErrUploadFailed, err)
	}
	if resp.StatusCode >= 400 {
		return &UploadError{Status: resp.StatusCode, Detail: apiErrorDetail(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// apiErrorDetail pulls the human-readable message out of a drive API error
// payload, falling back to a truncated raw body.
func apiErrorDetail(data []byte) string {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Error.Message != "" {
		if e.Error.Code != "" {
			return e.Error.Code + ": " + e.Error.Message
		}
		return e.Error.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// escapePath escapes each segment of a drive-relative path while keeping
// the separators intact.
func escapePath(p string) string {
	segs := Segments(p)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
