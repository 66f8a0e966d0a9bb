// Package remote implements dataservice.Service against the estimator HTTP
// API, including its websocket change feed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Client talks to a server started with `estimator serve`.
type Client struct {
	base    string
	http    *http.Client
	dialer  *websocket.Dialer
	breaker *breaker
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBreaker sets how many consecutive transport failures open the breaker
// and how long it stays open.
func WithBreaker(maxFailures int, resetTimeout time.Duration) Option {
	return func(c *Client) { c.breaker = newBreaker(maxFailures, resetTimeout) }
}

// New returns a client for the API rooted at base, e.g. http://localhost:7780.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", base)
	}
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
		breaker: newBreaker(5, 30*time.Second),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListEstimates(ctx context.Context) ([]estimate.Estimate, error) {
	var out []estimate.Estimate
	if err := c.do(ctx, http.MethodGet, "/api/estimates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateEstimate(ctx context.Context, in dataservice.EstimateInput) (dataservice.CreateEstimateResult, error) {
	var out dataservice.CreateEstimateResult
	err := c.do(ctx, http.MethodPost, "/api/estimates", in, &out)
	return out, err
}

func (c *Client) RemoveEstimate(ctx context.Context, estimateID string) error {
	return c.do(ctx, http.MethodDelete, estimatePath(estimateID), nil, nil)
}

// createRoomRequest is the body of POST .../rooms.
type createRoomRequest struct {
	dataservice.RoomInput
	ProductID string `json:"product_id,omitempty"`
}

func (c *Client) CreateRoom(ctx context.Context, estimateID string, in dataservice.RoomInput, productID string) (dataservice.CreateRoomResult, error) {
	var out dataservice.CreateRoomResult
	body := createRoomRequest{RoomInput: in, ProductID: productID}
	err := c.do(ctx, http.MethodPost, estimatePath(estimateID)+"/rooms", body, &out)
	return out, err
}

func (c *Client) RemoveRoom(ctx context.Context, estimateID, roomID string) error {
	return c.do(ctx, http.MethodDelete, roomPath(estimateID, roomID), nil, nil)
}

func (c *Client) AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (dataservice.AddResult, error) {
	var out dataservice.AddResult
	body := map[string]string{"product_id": productID}
	err := c.do(ctx, http.MethodPost, roomPath(estimateID, roomID)+"/products", body, &out)
	return out, err
}

func (c *Client) ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (dataservice.AddResult, error) {
	var out dataservice.AddResult
	body := map[string]string{"new_product_id": newProductID}
	path := roomPath(estimateID, roomID) + "/products/" + url.PathEscape(oldProductID)
	err := c.do(ctx, http.MethodPut, path, body, &out)
	return out, err
}

func (c *Client) RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (dataservice.RemoveResult, error) {
	var out dataservice.RemoveResult
	path := roomPath(estimateID, roomID) + "/products/" + strconv.Itoa(productIndex) +
		"?product_id=" + url.QueryEscape(productID)
	err := c.do(ctx, http.MethodDelete, path, nil, &out)
	return out, err
}

func (c *Client) GetProductVariationData(ctx context.Context, productID string) (estimate.VariationData, error) {
	var out estimate.VariationData
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID)+"/variations", nil, &out)
	return out, err
}

func (c *Client) GetRelatedItems(ctx context.Context, estimateID, roomID string) (estimate.RelatedItems, error) {
	var out estimate.RelatedItems
	err := c.do(ctx, http.MethodGet, roomPath(estimateID, roomID)+"/related", nil, &out)
	return out, err
}

func (c *Client) ListProducts(ctx context.Context) ([]estimate.Product, error) {
	var out []estimate.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func estimatePath(estimateID string) string {
	return "/api/estimates/" + url.PathEscape(estimateID)
}

func roomPath(estimateID, roomID string) string {
	return estimatePath(estimateID) + "/rooms/" + url.PathEscape(roomID)
}

// do sends one request and unwraps the response envelope into out. A
// rejected request comes back as *dataservice.Failure.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.breaker.allow() {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
	}

	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.failure()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env dataservice.Response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.breaker.failure()
		return fmt.Errorf("%s %s: %s: decode response: %w", method, path, resp.Status, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.failure()
	} else {
		c.breaker.success()
	}

	if !env.Success {
		var data dataservice.ErrorData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return fmt.Errorf("%s %s: %s: decode failure: %w", method, path, resp.Status, err)
			}
		}
		if data.Message == "" {
			data.Message = resp.Status
		}
		c.logger.Debug("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", data.Message))
		return &dataservice.Failure{Data: data}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

var _ dataservice.Service = (*Client)(nil)
