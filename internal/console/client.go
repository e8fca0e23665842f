// Package console drives purchase request and purchase order forms against a
// running purchasing API.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"procurement-desk/internal/app"
	"procurement-desk/internal/core"

	"github.com/rs/zerolog"
)

// APIError is returned for every non-2xx response. Body is the response body verbatim.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is a REST client for the purchasing API. It never retries and sets no
// timeout of its own; callers bound requests through ctx.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient returns a client for the API at baseURL. token, when non-empty, is sent as a bearer token.
func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{},
		log:     log,
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
		c.log.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body", apiErr.Body).
			Msg("api error")
		return apiErr
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api call")

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// ── Catalogs ──────────────────────────────────────────────────────────────────

// Catalogs fetches every catalog a form needs in one call.
func (c *Client) Catalogs(ctx context.Context) (*app.CatalogResult, error) {
	var res app.CatalogResult
	if err := c.do(ctx, http.MethodGet, "/api/catalogs", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CurrentPostingPeriod returns the open posting period covering date (YYYY-MM-DD, today when empty).
func (c *Client) CurrentPostingPeriod(ctx context.Context, date string) (*core.PostingPeriod, error) {
	path := "/api/current-posting-period"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var period core.PostingPeriod
	if err := c.do(ctx, http.MethodGet, path, nil, &period); err != nil {
		return nil, err
	}
	return &period, nil
}

// ── Purchase requests ─────────────────────────────────────────────────────────

func (c *Client) ListPurchaseRequests(ctx context.Context, filter core.PurchaseRequestFilter) ([]core.PurchaseRequest, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.EmpCode != "" {
		q.Set("emp_code", filter.EmpCode)
	}
	var prs []core.PurchaseRequest
	if err := c.do(ctx, http.MethodGet, withQuery("/api/purchase-requests", q), nil, &prs); err != nil {
		return nil, err
	}
	return prs, nil
}

func (c *Client) GetPurchaseRequest(ctx context.Context, id int) (*core.PurchaseRequest, error) {
	var pr core.PurchaseRequest
	if err := c.do(ctx, http.MethodGet, prPath(id), nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (c *Client) CreatePurchaseRequest(ctx context.Context, in core.PurchaseRequestInput) (*core.PurchaseRequest, error) {
	var pr core.PurchaseRequest
	if err := c.do(ctx, http.MethodPost, "/api/purchase-requests", in, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (c *Client) UpdatePurchaseRequest(ctx context.Context, id int, in core.PurchaseRequestInput) (*core.PurchaseRequest, error) {
	var pr core.PurchaseRequest
	if err := c.do(ctx, http.MethodPut, prPath(id), in, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (c *Client) SetPurchaseRequestStatus(ctx context.Context, id int, in core.StatusInput) error {
	return c.do(ctx, http.MethodPut, prPath(id)+"/status", in, nil)
}

func (c *Client) DeletePurchaseRequest(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, prPath(id), nil, nil)
}

// DraftRequestLines asks the server-side assistant for draft lines.
func (c *Client) DraftRequestLines(ctx context.Context, req app.DraftLinesRequest) (*app.DraftLinesResult, error) {
	var res app.DraftLinesResult
	if err := c.do(ctx, http.MethodPost, "/api/purchase-requests/draft-lines", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ── Purchase orders ───────────────────────────────────────────────────────────

func (c *Client) ListPurchaseOrders(ctx context.Context, filter core.PurchaseOrderFilter) ([]core.PurchaseOrder, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.VendorCode != "" {
		q.Set("bpcode", filter.VendorCode)
	}
	var pos []core.PurchaseOrder
	if err := c.do(ctx, http.MethodGet, withQuery("/api/purchase-orders", q), nil, &pos); err != nil {
		return nil, err
	}
	return pos, nil
}

func (c *Client) GetPurchaseOrder(ctx context.Context, id int) (*core.PurchaseOrder, error) {
	var po core.PurchaseOrder
	if err := c.do(ctx, http.MethodGet, poPath(id), nil, &po); err != nil {
		return nil, err
	}
	return &po, nil
}

func (c *Client) CreatePurchaseOrder(ctx context.Context, in core.PurchaseOrderInput) (*core.PurchaseOrder, error) {
	var po core.PurchaseOrder
	if err := c.do(ctx, http.MethodPost, "/api/purchase-orders", in, &po); err != nil {
		return nil, err
	}
	return &po, nil
}

func (c *Client) UpdatePurchaseOrder(ctx context.Context, id int, in core.PurchaseOrderInput) (*core.PurchaseOrder, error) {
	var po core.PurchaseOrder
	if err := c.do(ctx, http.MethodPut, poPath(id), in, &po); err != nil {
		return nil, err
	}
	return &po, nil
}

func (c *Client) SetPurchaseOrderStatus(ctx context.Context, id int, in core.StatusInput) error {
	return c.do(ctx, http.MethodPut, poPath(id)+"/status", in, nil)
}

func (c *Client) DeletePurchaseOrder(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, poPath(id), nil, nil)
}

// ConvertPurchaseRequests creates one purchase order from approved purchase requests.
func (c *Client) ConvertPurchaseRequests(ctx context.Context, in core.ConversionInput) (*core.PurchaseOrder, error) {
	var po core.PurchaseOrder
	if err := c.do(ctx, http.MethodPost, "/api/purchase-orders/convert-from-pr", in, &po); err != nil {
		return nil, err
	}
	return &po, nil
}

func prPath(id int) string { return "/api/purchase-requests/" + strconv.Itoa(id) }

func poPath(id int) string { return "/api/purchase-orders/" + strconv.Itoa(id) }

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
