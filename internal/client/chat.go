package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matjip-map/discovery-service/internal/domain"
)

// ReplyKind classifies a recommendation backend reply.
type ReplyKind int

const (
	// ReplyEmpty is a final answer without results. Malformed replies land here too.
	ReplyEmpty ReplyKind = iota
	// ReplyProcessing means the answer is not ready; poll again.
	ReplyProcessing
	// ReplyList carries a non-empty ranked list.
	ReplyList
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyProcessing:
		return "processing"
	case ReplyList:
		return "list"
	default:
		return "empty"
	}
}

// Reply is a classified backend answer.
type Reply struct {
	Kind    ReplyKind
	Message string
	Items   []domain.RankedResult
}

// chatResponse is the backend wire format. Older deployments answer in
// "reply" rather than "response".
type chatResponse struct {
	Response string     `json:"response"`
	Reply    string     `json:"reply"`
	Status   string     `json:"status"`
	Items    []chatItem `json:"items"`
}

type chatItem struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Address    string  `json:"address"`
	Score      float64 `json:"score"`
	DistanceKm float64 `json:"distance_km"`
}

// ChatClient calls the recommendation backend.
type ChatClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewChatClient creates a backend client for baseURL.
func NewChatClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ChatClient {
	return &ChatClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Ask sends one query for sessionID.
func (c *ChatClient) Ask(ctx context.Context, sessionID, query string) (Reply, error) {
	body, err := json.Marshal(map[string]string{"query": query, "session_id": sessionID})
	if err != nil {
		return Reply{}, fmt.Errorf("encode chat query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", strings.NewReader(string(body)))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

// Poll fetches the pending answer for sessionID after a processing reply.
func (c *ChatClient) Poll(ctx context.Context, sessionID string) (Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	return c.send(req)
}

func (c *ChatClient) send(req *http.Request) (Reply, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Reply{}, fmt.Errorf("chat backend error: status %d: %s", resp.StatusCode, body)
	}

	var raw chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.logger.Warn("malformed chat reply", "error", err)
		return Reply{Kind: ReplyEmpty}, nil
	}
	return c.classify(raw), nil
}

func (c *ChatClient) classify(raw chatResponse) Reply {
	msg := raw.Response
	if msg == "" {
		msg = raw.Reply
	}
	if strings.EqualFold(raw.Status, "processing") {
		return Reply{Kind: ReplyProcessing, Message: msg}
	}

	items := make([]domain.RankedResult, 0, len(raw.Items))
	for _, it := range raw.Items {
		coord := domain.Coordinate{Lat: it.Lat, Lng: it.Lng}
		if err := coord.Validate(); err != nil {
			c.logger.Warn("dropping chat item with invalid coordinate", "id", it.ID, "error", err)
			continue
		}
		items = append(items, domain.RankedResult{
			POI: domain.POI{
				ID:         it.ID,
				Name:       it.Name,
				Category:   domain.ParseCategory(it.Category),
				Coordinate: coord,
				Address:    it.Address,
				Score:      it.Score,
			},
			DistanceKm: it.DistanceKm,
		})
	}
	if len(items) == 0 {
		return Reply{Kind: ReplyEmpty, Message: msg}
	}
	return Reply{Kind: ReplyList, Message: msg, Items: items}
}
