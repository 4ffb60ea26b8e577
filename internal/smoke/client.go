package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/types"
)

// Client is a thin JSON client for the pokepack API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, client: &http.Client{Timeout: timeout}}
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Path   string
	Status int
	Body   types.ErrorResponse
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s (%s)", e.Path, e.Status, e.Body.Message, e.Body.Code)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Path: path, Status: resp.StatusCode}
		_ = json.Unmarshal(data, &se.Body)
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	var h struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &h); err != nil {
		return err
	}
	if !h.OK {
		return fmt.Errorf("healthz reported not ok")
	}
	return nil
}

// Packs lists the openable packs.
func (c *Client) Packs(ctx context.Context) ([]model.PackSet, error) {
	var packs []model.PackSet
	err := c.do(ctx, http.MethodGet, "/api/packs", nil, &packs)
	return packs, err
}

// Register registers or fetches username.
func (c *Client) Register(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := c.do(ctx, http.MethodPost, "/api/users/register", types.RegisterRequest{Username: username}, &u)
	return u, err
}

// Collection lists the cards of username.
func (c *Client) Collection(ctx context.Context, username string) ([]model.CollectionEntry, error) {
	var entries []model.CollectionEntry
	err := c.do(ctx, http.MethodGet, "/api/collections/"+url.PathEscape(username), nil, &entries)
	return entries, err
}

// OpenPack opens one pack of setID.
func (c *Client) OpenPack(ctx context.Context, username, setID string) (types.OpenPackResponse, error) {
	var res types.OpenPackResponse
	err := c.do(ctx, http.MethodPost, "/api/packs/open", types.OpenPackRequest{Username: username, SetID: setID}, &res)
	return res, err
}

// FinishTyping submits a typing run.
func (c *Client) FinishTyping(ctx context.Context, req types.TypingFinishRequest) (types.TypingFinishResponse, error) {
	var res types.TypingFinishResponse
	err := c.do(ctx, http.MethodPost, "/api/games/typing/finish", req, &res)
	return res, err
}

// FinishMemory submits a memory-match run.
func (c *Client) FinishMemory(ctx context.Context, req types.MemoryFinishRequest) (types.MemoryFinishResponse, error) {
	var res types.MemoryFinishResponse
	err := c.do(ctx, http.MethodPost, "/api/games/memory/finish", req, &res)
	return res, err
}

// Spin spins the wheel.
func (c *Client) Spin(ctx context.Context, username string) (types.SpinResponse, error) {
	var res types.SpinResponse
	err := c.do(ctx, http.MethodPost, "/api/games/spin", types.UsernameRequest{Username: username}, &res)
	return res, err
}
