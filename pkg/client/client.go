// Package client is a typed consumer of the expense HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/category"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response. Messages holds every message the server
// returned; validation failures carry one per invalid field.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New returns a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListExpenses(ctx context.Context, query expense.RawListQuery) (*expense.ExpenseList, error) {
	path := "/api/expenses"
	if values := query.Values(); len(values) > 0 {
		path += "?" + values.Encode()
	}

	var resp expense.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &expense.ExpenseList{Count: resp.Count, Total: resp.Total, Data: resp.Data}, nil
}

func (c *Client) GetExpense(ctx context.Context, id string) (*expense.Expense, error) {
	var resp expense.ExpenseResponse
	if err := c.do(ctx, http.MethodGet, expensePath(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CreateExpense(ctx context.Context, dto expense.CreateExpenseDTO) (*expense.Expense, error) {
	var resp expense.ExpenseResponse
	if err := c.do(ctx, http.MethodPost, "/api/expenses", dto, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) UpdateExpense(ctx context.Context, id string, dto expense.UpdateExpenseDTO) (*expense.Expense, error) {
	var resp expense.ExpenseResponse
	if err := c.do(ctx, http.MethodPut, expensePath(id), dto, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, expensePath(id), nil, nil)
}

func (c *Client) GetStatistics(ctx context.Context) (*expense.Statistics, error) {
	var resp expense.StatisticsResponse
	if err := c.do(ctx, http.MethodGet, "/api/expenses/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) Categories(ctx context.Context) ([]category.CategoryResponse, error) {
	var resp category.CategoriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func expensePath(id string) string {
	return "/api/expenses/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads the failure envelope, whose error member is either a
// single message or a list of them.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || len(envelope.Error) == 0 {
		return apiErr
	}

	var messages []string
	if err := json.Unmarshal(envelope.Error, &messages); err == nil {
		apiErr.Messages = messages
		return apiErr
	}

	var message string
	if err := json.Unmarshal(envelope.Error, &message); err == nil && message != "" {
		apiErr.Messages = []string{message}
	}
	return apiErr
}
