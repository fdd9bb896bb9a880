package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"shinydex/internal/cache"
	"shinydex/internal/constants"
)

// ErrNotFound is returned when the remote source has no record for the id.
var ErrNotFound = errors.New("pokeapi: not found")

type Client struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
	cache   *cache.Cache[[]byte]
	logger  zerolog.Logger
}

type Option func(*Client)

// WithCache keeps successful response bodies keyed by endpoint.
func WithCache(c *cache.Cache[[]byte]) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = constants.PokeAPIBaseURL
	}

	c := &Client{
		baseURL: base,
		timeout: constants.ExternalAPITimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &fasthttp.Client{
		Name:                "shinydex/1.0",
		MaxConnsPerHost:     16,
		ReadTimeout:         c.timeout,
		WriteTimeout:        c.timeout,
		MaxIdleConnDuration: 1 * time.Minute,
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// GetPokemon fetches GET {base}/pokemon/{id}.
func (c *Client) GetPokemon(ctx context.Context, id int) (*Pokemon, error) {
	return doRequest[Pokemon](ctx, c, fmt.Sprintf("/pokemon/%d", id))
}

func doRequest[T any](ctx context.Context, c *Client, endpoint string) (*T, error) {
	body, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("pokeapi %s: decode: %w", endpoint, err)
	}
	return &result, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if c.cache != nil {
		if b, ok := c.cache.Get(endpoint); ok {
			c.logger.Debug().Str("endpoint", endpoint).Msg("pokeapi cache hit")
			return b, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("pokeapi %s: request: %w", endpoint, err)
	}

	switch code := resp.StatusCode(); {
	case code == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("pokeapi %s: %w", endpoint, ErrNotFound)
	case code != fasthttp.StatusOK:
		return nil, fmt.Errorf("pokeapi %s: status %d", endpoint, code)
	}

	// resp is returned to the pool, keep our own copy
	body := append([]byte(nil), resp.Body()...)
	if c.cache != nil {
		c.cache.Set(endpoint, body)
	}
	return body, nil
}
