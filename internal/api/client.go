// Package api is the JSON client for the expense REST surface. The
// session store talks to the server exclusively through it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chitieu/internal/core"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
}

// NewClientWithHTTP allows injecting a custom http.Client (timeouts, tests).
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	c := NewClient(baseURL)
	if httpClient != nil {
		c.http = httpClient
	}
	return c
}

// ListExpenses fetches the given month's expenses; empty month means the
// server's current month.
func (c *Client) ListExpenses(ctx context.Context, month string) ([]core.Expense, error) {
	path := "/expenses"
	if month != "" {
		path += "?month=" + url.QueryEscape(month)
	}
	var out []core.Expense
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, f core.ExpenseFields) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/expenses", f, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, f core.ExpenseFields) error {
	return c.do(ctx, http.MethodPut, "/expenses/"+strconv.FormatInt(id, 10), f, nil)
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) GetBudget(ctx context.Context) (float64, error) {
	var out struct {
		TotalMoney float64 `json:"total_money"`
	}
	if err := c.do(ctx, http.MethodGet, "/budget", nil, &out); err != nil {
		return 0, err
	}
	return out.TotalMoney, nil
}

func (c *Client) SetBudget(ctx context.Context, value float64) error {
	body := map[string]float64{"total_money": value}
	return c.do(ctx, http.MethodPost, "/budget", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("api: %s %s: http %d: %s", method, path, resp.StatusCode, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
