package lbcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/arcade/internal/domain/types"
)

// Client reads the leaderboard API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// Health fails unless both the service and its store report UP.
func (c *Client) Health(ctx context.Context) error {
	var h healthBody
	if err := c.getJSON(ctx, "/health", &h); err != nil {
		return err
	}
	if h.Status != "UP" || h.Store != "UP" {
		return fmt.Errorf("%w: status=%s store=%s", ErrUnhealthy, h.Status, h.Store)
	}
	return nil
}

// GameCodes lists the games with leaderboards.
func (c *Client) GameCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := c.getJSON(ctx, "/api/leaderboard/games/codes", &codes)
	return codes, err
}

// Game fetches one game's leaderboard.
func (c *Client) Game(ctx context.Context, code string, limit int) (types.GameLeaderboard, error) {
	var board types.GameLeaderboard
	err := c.getJSON(ctx, "/api/leaderboard/game/"+url.PathEscape(code)+limitQuery(limit), &board)
	return board, err
}

// TopPerGame fetches the best player of every game.
func (c *Client) TopPerGame(ctx context.Context, limit int) ([]types.GameRow, error) {
	var rows []types.GameRow
	err := c.getJSON(ctx, "/api/leaderboard/games"+limitQuery(limit), &rows)
	return rows, err
}

// Global fetches the total score leaderboard.
func (c *Client) Global(ctx context.Context, limit int) ([]types.TotalRow, error) {
	var rows []types.TotalRow
	err := c.getJSON(ctx, "/api/leaderboard/global"+limitQuery(limit), &rows)
	return rows, err
}

func limitQuery(limit int) string {
	return "?limit=" + strconv.Itoa(limit)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %d %s", ErrUnexpectedStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
