package lounge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/pkg/logger"
	"github.com/mogibot/penalty/pkg/metrics"
)

// Default HTTP client configuration constants.
const (
	defaultRequestTimeout = 15 * time.Second
)

// HTTPClient implements Client against the remote lounge website API.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	hc       *http.Client
	logger   logger.Logger
}

// HTTPOption applies a configuration option to the HTTPClient.
type HTTPOption func(*HTTPClient)

// WithBasicAuth sets the website credentials used on every call.
func WithBasicAuth(username, password string) HTTPOption {
	return func(c *HTTPClient) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient sets a custom underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithHTTPLogger sets a custom logger for the client.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewHTTPClient creates a lounge API client for the given base URL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger.Get().Named("lounge"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// do performs one call and decodes the JSON body into out (when non-nil).
// 404 maps to ErrNotFound; any other non-2xx status maps to ErrRemote.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordLoungeCallLatency(op, float64(time.Since(start).Milliseconds()))
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrRemote)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.RecordLoungeCallError(op)
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// Wire shapes mirror the lounge website's JSON payloads.

type tableBody struct {
	ID         int64           `json:"id"`
	Tier       string          `json:"tier"`
	AuthorID   string          `json:"authorId"`
	CreatedOn  string          `json:"createdOn"`
	VerifiedOn *string         `json:"verifiedOn"`
	DeletedOn  *string         `json:"deletedOn"`
	Teams      []tableTeamBody `json:"teams"`
}

type tableTeamBody struct {
	Rank   int              `json:"rank"`
	Scores []tableScoreBody `json:"scores"`
}

type tableScoreBody struct {
	PlayerID        int64   `json:"playerId"`
	PlayerName      string  `json:"playerName"`
	PlayerDiscordID string  `json:"playerDiscordId"`
	Score           int     `json:"score"`
	Multiplier      float64 `json:"multiplier"`
}

type playerBody struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	DiscordID string `json:"discordId"`
}

type requestBody struct {
	ID            int64  `json:"id"`
	PenaltyName   string `json:"penaltyName"`
	LeaderboardID string `json:"leaderboardId"`
	TableID       int64  `json:"tableId"`
	NumberOfRaces int    `json:"numberOfRaces"`
	ReporterID    int64  `json:"reporterId"`
	ReporterName  string `json:"reporterName"`
	PlayerID      int64  `json:"playerId"`
	PlayerName    string `json:"playerName"`
}

type penaltyBody struct {
	ID int64 `json:"id"`
}

func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func (b tableBody) toModel() model.Table {
	t := model.Table{
		ID:         b.ID,
		Tier:       b.Tier,
		AuthorID:   b.AuthorID,
		VerifiedOn: parseTime(b.VerifiedOn),
		DeletedOn:  parseTime(b.DeletedOn),
	}
	if created := parseTime(&b.CreatedOn); created != nil {
		t.CreatedOn = *created
	}
	for _, team := range b.Teams {
		mt := model.Team{Rank: team.Rank}
		for _, s := range team.Scores {
			mt.Scores = append(mt.Scores, model.TableScore{
				Player: model.Player{
					ID:        s.PlayerID,
					Name:      s.PlayerName,
					DiscordID: s.PlayerDiscordID,
				},
				Score:      s.Score,
				Multiplier: s.Multiplier,
			})
		}
		t.Teams = append(t.Teams, mt)
	}
	return t
}

func (b requestBody) toModel() model.PenaltyRequest {
	return model.PenaltyRequest{
		ID:            b.ID,
		KindName:      b.PenaltyName,
		LeaderboardID: b.LeaderboardID,
		TableID:       b.TableID,
		Count:         b.NumberOfRaces,
		ReporterID:    b.ReporterID,
		ReporterName:  b.ReporterName,
		PlayerID:      b.PlayerID,
		PlayerName:    b.PlayerName,
	}
}

// GetTable fetches a table by id.
func (c *HTTPClient) GetTable(ctx context.Context, tableID int64) (model.Table, error) {
	q := url.Values{"tableId": {strconv.FormatInt(tableID, 10)}}
	var body tableBody
	if err := c.do(ctx, "get_table", http.MethodGet, "/api/table", q, &body); err != nil {
		return model.Table{}, err
	}
	return body.toModel(), nil
}

// GetPlayer fetches a player by name.
func (c *HTTPClient) GetPlayer(ctx context.Context, name string) (model.Player, error) {
	q := url.Values{"name": {name}}
	var body playerBody
	if err := c.do(ctx, "get_player", http.MethodGet, "/api/player", q, &body); err != nil {
		return model.Player{}, err
	}
	return model.Player{ID: body.ID, Name: body.Name, DiscordID: body.DiscordID}, nil
}

// GetPlayerByID fetches a player by lounge id.
func (c *HTTPClient) GetPlayerByID(ctx context.Context, id int64) (model.Player, error) {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	var body playerBody
	if err := c.do(ctx, "get_player", http.MethodGet, "/api/player", q, &body); err != nil {
		return model.Player{}, err
	}
	return model.Player{ID: body.ID, Name: body.Name, DiscordID: body.DiscordID}, nil
}

// GetPlayerByDiscord fetches a player by external discord id.
func (c *HTTPClient) GetPlayerByDiscord(ctx context.Context, discordID string) (model.Player, error) {
	q := url.Values{"discordId": {discordID}}
	var body playerBody
	if err := c.do(ctx, "get_player", http.MethodGet, "/api/player", q, &body); err != nil {
		return model.Player{}, err
	}
	return model.Player{ID: body.ID, Name: body.Name, DiscordID: body.DiscordID}, nil
}

// CreateRequest persists a new penalty request and returns it with the
// id assigned upstream.
func (c *HTTPClient) CreateRequest(ctx context.Context, p CreateRequestParams) (model.PenaltyRequest, error) {
	q := url.Values{
		"penaltyName":   {p.KindName},
		"playerName":    {p.PlayerName},
		"reporterName":  {p.ReporterName},
		"tableId":       {strconv.FormatInt(p.TableID, 10)},
		"numberOfRaces": {strconv.Itoa(p.Count)},
	}
	var body requestBody
	if err := c.do(ctx, "create_request", http.MethodPost, "/api/penaltyrequest/create", q, &body); err != nil {
		return model.PenaltyRequest{}, err
	}
	req := body.toModel()
	if req.LeaderboardID == "" {
		req.LeaderboardID = p.LeaderboardID
	}
	return req, nil
}

// GetRequest fetches a pending request by id.
func (c *HTTPClient) GetRequest(ctx context.Context, id int64) (model.PenaltyRequest, error) {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	var body requestBody
	if err := c.do(ctx, "get_request", http.MethodGet, "/api/penaltyrequest", q, &body); err != nil {
		return model.PenaltyRequest{}, err
	}
	return body.toModel(), nil
}

// ListPending fetches every pending request for a leaderboard.
func (c *HTTPClient) ListPending(ctx context.Context, leaderboardID string) ([]model.PenaltyRequest, error) {
	q := url.Values{}
	if leaderboardID != "" {
		q.Set("game", leaderboardID)
	}
	var body []requestBody
	if err := c.do(ctx, "list_pending", http.MethodGet, "/api/penaltyrequest/list", q, &body); err != nil {
		return nil, err
	}
	out := make([]model.PenaltyRequest, 0, len(body))
	for _, b := range body {
		req := b.toModel()
		if req.LeaderboardID == "" {
			req.LeaderboardID = leaderboardID
		}
		out = append(out, req)
	}
	return out, nil
}

// DeleteRequest removes a request from the pending set.
func (c *HTTPClient) DeleteRequest(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.do(ctx, "delete_request", http.MethodDelete, "/api/penaltyrequest", q, nil)
}

// ApplyPenalty issues one penalty per player. A failed per-player call
// yields a nil id; the loop keeps going so partial results are surfaced.
func (c *HTTPClient) ApplyPenalty(ctx context.Context, p PenaltyParams) ([]*int64, error) {
	ids := make([]*int64, 0, len(p.PlayerNames))
	for _, name := range p.PlayerNames {
		q := url.Values{
			"name":   {name},
			"amount": {strconv.Itoa(p.Amount)},
			"reason": {p.Reason},
		}
		if p.Tier != "" {
			q.Set("tier", p.Tier)
		}
		if p.TableID != 0 {
			q.Set("tableId", strconv.FormatInt(p.TableID, 10))
		}
		if p.IsAnonymous {
			q.Set("isAnonymous", "true")
		}
		if p.IsStrike {
			q.Set("isStrike", "true")
		}
		var body penaltyBody
		if err := c.do(ctx, "apply_penalty", http.MethodPost, "/api/penalty/create", q, &body); err != nil {
			c.logger.Warn(ctx, "penalty application failed for player",
				logger.String("player", name),
				logger.Error(err),
			)
			ids = append(ids, nil)
			continue
		}
		id := body.ID
		ids = append(ids, &id)
	}
	return ids, nil
}

// SetMultipliers writes the multiplier map for a table.
func (c *HTTPClient) SetMultipliers(ctx context.Context, tableID int64, multipliers map[string]float64) error {
	op := "set_multipliers"
	start := time.Now()
	defer func() {
		metrics.RecordLoungeCallLatency(op, float64(time.Since(start).Milliseconds()))
	}()

	u := fmt.Sprintf("%s/api/table/setMultipliers?tableId=%d", c.baseURL, tableID)
	payload, err := json.Marshal(multipliers)
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordLoungeCallError(op)
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ErrRemote)
	}
	return nil
}
