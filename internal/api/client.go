package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"topten/internal/models"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	httpTimeoutEnvKey  = "TOPTEN_HTTP_TIMEOUT"

	fallbackUploadContentType = "application/octet-stream"
)

// Client is a simple HTTP client for the topten API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/api/info", nil, &resp)
	return resp, err
}

func (c *Client) ListLists(ctx context.Context) ([]ListResponse, error) {
	var resp []ListResponse
	err := c.do(ctx, http.MethodGet, "/api/lists", nil, &resp)
	return resp, err
}

func (c *Client) GetList(ctx context.Context, id int64) (ListResponse, error) {
	var resp ListResponse
	err := c.do(ctx, http.MethodGet, "/api/lists/"+strconv.FormatInt(id, 10), nil, &resp)
	return resp, err
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var resp []models.Category
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &resp)
	return resp, err
}

// Search queries the server's entity-search proxy.
func (c *Client) Search(ctx context.Context, query, typ string, limit int) (SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if typ != "" {
		params.Set("type", typ)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp SearchResponse
	err := c.do(ctx, http.MethodGet, "/api/search", params, &resp)
	return resp, err
}

// CreateList submits a list as multipart form data, uploading any item
// ImagePath files alongside the descriptors.
func (c *Client) CreateList(ctx context.Context, req CreateListRequest) (CreateListResponse, error) {
	var resp CreateListResponse

	body, contentType, err := encodeListForm(req)
	if err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/new", body)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func encodeListForm(req CreateListRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", req.Title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("category", req.Category); err != nil {
		return nil, "", err
	}

	var images []string
	for i, item := range req.Items {
		item.HasImage = strings.TrimSpace(item.ImagePath) != ""
		if item.HasImage {
			images = append(images, item.ImagePath)
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return nil, "", fmt.Errorf("encode item %d: %w", i, err)
		}
		if err := w.WriteField("items[]", string(payload)); err != nil {
			return nil, "", err
		}
	}

	for _, path := range images {
		if err := writeImagePart(w, path); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeImagePart(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = fallbackUploadContentType
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read image %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
	}
	return apiErr
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
