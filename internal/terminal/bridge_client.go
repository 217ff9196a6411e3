package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"terminal-collector/internal/domain"
)

// Default configuration values.
const (
	DefaultBridgeURL   = "http://127.0.0.1:18812/rpc"
	DefaultTimeout     = 0 // no deadline; a hung terminal stalls its endpoint
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Bridge JSON-RPC methods.
const (
	methodInitialize   = "initialize"
	methodTerminalInfo = "terminal_info"
	methodAccountInfo  = "account_info"
	methodHistoryDeals = "history_deals_get"
	methodPositions    = "positions_get"
	methodShutdown     = "shutdown"
)

// BridgeClient implements Terminal using JSON-RPC 2.0 over HTTP to a terminal bridge.
// The bridge drives one terminal at a time, so only one session may be open.
type BridgeClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	observe     func(method string, elapsed time.Duration)
	requestID   atomic.Uint64

	mu     sync.Mutex
	active bool
}

// Compile-time interface check.
var _ Terminal = (*BridgeClient)(nil)

// ClientOption configures BridgeClient.
type ClientOption func(*BridgeClient)

// WithTimeout sets HTTP client timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *BridgeClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *BridgeClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *BridgeClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *BridgeClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *BridgeClient) {
		c.client = client
	}
}

// WithCallObserver reports the latency of every call, retries included.
func WithCallObserver(fn func(method string, elapsed time.Duration)) ClientOption {
	return func(c *BridgeClient) {
		c.observe = fn
	}
}

// NewBridgeClient creates a new terminal bridge client.
func NewBridgeClient(endpoint string, opts ...ClientOption) *BridgeClient {
	if endpoint == "" {
		endpoint = DefaultBridgeURL
	}
	c := &BridgeClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the bridge itself (not a transport failure).
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
// It returns the raw result, which is nil when the bridge answered null.
func (c *BridgeClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(method, time.Since(start)) }()
	}

	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return nil, rpcResp.Error
		}

		if len(rpcResp.Result) == 0 || bytes.Equal(rpcResp.Result, []byte("null")) {
			return nil, nil
		}
		return rpcResp.Result, nil
	}

	return nil, fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

// Connect initializes the terminal at the endpoint and verifies it is ready.
func (c *BridgeClient) Connect(ctx context.Context, endpoint domain.Endpoint) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil, &ConnectError{Endpoint: endpoint, Err: ErrSessionActive}
	}

	params := map[string]any{"path": endpoint.Path}
	raw, err := c.call(ctx, methodInitialize, params)
	if err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}
	var ok bool
	if raw != nil {
		if err := json.Unmarshal(raw, &ok); err != nil {
			return nil, &ConnectError{Endpoint: endpoint, Err: fmt.Errorf("decode initialize result: %w", err)}
		}
	}
	if !ok {
		return nil, &ConnectError{Endpoint: endpoint, Err: errors.New("terminal rejected initialize")}
	}

	// From here the bridge holds the terminal; release it on any failure.
	raw, err = c.call(ctx, methodTerminalInfo, nil)
	if err != nil || raw == nil {
		_, _ = c.call(context.WithoutCancel(ctx), methodShutdown, nil)
		if err == nil {
			err = ErrUnavailable
		}
		return nil, &ConnectError{Endpoint: endpoint, Err: fmt.Errorf("terminal info: %w", err)}
	}

	c.active = true
	return &bridgeSession{client: c, endpoint: endpoint}, nil
}

func (c *BridgeClient) release() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// bridgeSession is a connected terminal behind the bridge.
type bridgeSession struct {
	client   *BridgeClient
	endpoint domain.Endpoint
	closed   atomic.Bool
}

// Compile-time interface check.
var _ Session = (*bridgeSession)(nil)

// accountInfoRow is the raw account_info result.
type accountInfoRow struct {
	Login       int64   `json:"login"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
	Profit      float64 `json:"profit"`
}

// dealRow is one raw history_deals_get item.
type dealRow struct {
	Ticket     int64   `json:"ticket"`
	Magic      int64   `json:"magic"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Time       int64   `json:"time"` // epoch seconds
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Comment    string  `json:"comment"`
}

// positionRow is one raw positions_get item.
type positionRow struct {
	Ticket       int64   `json:"ticket"`
	Magic        int64   `json:"magic"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	SL           float64 `json:"sl"`
	TP           float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap"`
	Comment      string  `json:"comment"`
}

// Endpoint returns the endpoint the session was opened on.
func (s *bridgeSession) Endpoint() domain.Endpoint {
	return s.endpoint
}

func (s *bridgeSession) fetchAccountInfo(ctx context.Context) (*accountInfoRow, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	raw, err := s.client.call(ctx, methodAccountInfo, nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var row accountInfoRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode account info: %w", err)
	}
	return &row, nil
}

// AccountID returns the login of the connected account.
func (s *bridgeSession) AccountID(ctx context.Context) (int64, error) {
	row, err := s.fetchAccountInfo(ctx)
	if err != nil {
		return 0, err
	}
	if row == nil || row.Login == 0 {
		return 0, ErrUnavailable
	}
	return row.Login, nil
}

// AccountInfo returns live account metrics.
func (s *bridgeSession) AccountInfo(ctx context.Context) AccountInfoResult {
	row, err := s.fetchAccountInfo(ctx)
	if err != nil {
		return AccountInfoResult{Status: StatusFailed, Err: err}
	}
	if row == nil {
		return AccountInfoResult{Status: StatusUnavailable}
	}
	return AccountInfoResult{
		Status: StatusOK,
		Info: domain.AccountInfo{
			Login:       row.Login,
			Balance:     row.Balance,
			Equity:      row.Equity,
			Margin:      row.Margin,
			FreeMargin:  row.MarginFree,
			MarginLevel: row.MarginLevel,
			Profit:      row.Profit,
		},
	}
}

// Deals returns deals in [from, to].
func (s *bridgeSession) Deals(ctx context.Context, from, to time.Time) DealsResult {
	if s.closed.Load() {
		return DealsResult{Status: StatusFailed, Err: ErrSessionClosed}
	}
	params := map[string]any{"from": from.Unix(), "to": to.Unix()}
	raw, err := s.client.call(ctx, methodHistoryDeals, params)
	if err != nil {
		return DealsResult{Status: StatusFailed, Err: err}
	}
	if raw == nil {
		return DealsResult{Status: StatusUnavailable}
	}

	var rows []dealRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return DealsResult{Status: StatusFailed, Err: fmt.Errorf("decode deals: %w", err)}
	}

	deals := make([]domain.Deal, len(rows))
	for i, r := range rows {
		deals[i] = domain.Deal{
			Ticket:     r.Ticket,
			Magic:      r.Magic,
			Symbol:     r.Symbol,
			TypeCode:   r.Type,
			Volume:     r.Volume,
			Price:      r.Price,
			Time:       time.Unix(r.Time, 0).UTC(),
			Profit:     r.Profit,
			Commission: r.Commission,
			Swap:       r.Swap,
			Comment:    r.Comment,
		}
	}
	return DealsFromRows(deals)
}

// Positions returns the currently open positions.
func (s *bridgeSession) Positions(ctx context.Context) PositionsResult {
	if s.closed.Load() {
		return PositionsResult{Status: StatusFailed, Err: ErrSessionClosed}
	}
	raw, err := s.client.call(ctx, methodPositions, nil)
	if err != nil {
		return PositionsResult{Status: StatusFailed, Err: err}
	}
	if raw == nil {
		return PositionsResult{Status: StatusUnavailable}
	}

	var rows []positionRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return PositionsResult{Status: StatusFailed, Err: fmt.Errorf("decode positions: %w", err)}
	}

	positions := make([]domain.Position, len(rows))
	for i, r := range rows {
		positions[i] = domain.Position{
			Ticket:       r.Ticket,
			Magic:        r.Magic,
			Symbol:       r.Symbol,
			TypeCode:     r.Type,
			Volume:       r.Volume,
			OpenPrice:    r.PriceOpen,
			CurrentPrice: r.PriceCurrent,
			SL:           r.SL,
			TP:           r.TP,
			Profit:       r.Profit,
			Swap:         r.Swap,
			Comment:      r.Comment,
		}
	}
	return PositionsFromRows(positions)
}

// Close shuts the terminal down and frees the bridge for the next session.
// The shutdown call ignores ctx cancellation so an interrupted loop still releases the terminal.
func (s *bridgeSession) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer s.client.release()

	if _, err := s.client.call(context.WithoutCancel(ctx), methodShutdown, nil); err != nil {
		return fmt.Errorf("shutdown terminal %s: %w", s.endpoint, err)
	}
	return nil
}
