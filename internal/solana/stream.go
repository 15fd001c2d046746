package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-whale-watch/internal/observability"
)

// ConnState is the lifecycle state of a stream connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateSubscribed
	StateClosing
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Subscription methods supported by StreamClient.
const (
	MethodLogs         = "logsSubscribe"
	MethodTransactions = "transactionSubscribe"
)

// ErrMaxReconnects is returned by Run after the configured number of
// consecutive reconnect attempts all failed.
var ErrMaxReconnects = errors.New("stream: max reconnect attempts exceeded")

// StreamConfig configures a StreamClient.
type StreamConfig struct {
	// Endpoint is the WebSocket URL.
	Endpoint string
	// Method is the subscription method (MethodLogs or MethodTransactions).
	Method string
	// Mentions is the program/account inclusion filter.
	Mentions []string
	// Commitment is the provider commitment level.
	Commitment string
	// BackoffBase is the initial reconnect delay.
	BackoffBase time.Duration
	// BackoffCap is the maximum reconnect delay.
	BackoffCap time.Duration
	// MaxReconnects is the number of consecutive failed reconnects
	// before Run gives up with ErrMaxReconnects. 0 means unlimited.
	MaxReconnects int
	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration
	// ReadTimeout bounds a single read; provider pings reset it.
	ReadTimeout time.Duration
	// WriteTimeout bounds writes, including pong replies.
	WriteTimeout time.Duration
	// Buffer is the delivery channel capacity.
	Buffer int
}

func (c *StreamConfig) applyDefaults() {
	if c.Method == "" {
		c.Method = MethodLogs
	}
	if c.Commitment == "" {
		c.Commitment = "confirmed"
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 1 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
}

// StreamClient owns one persistent WebSocket subscription. It manages the
// handshake, keepalive replies and backoff-based reconnection, and delivers
// data frames in arrival order on the Messages channel. One consumer per
// client; cross-client ordering is not guaranteed.
type StreamClient struct {
	cfg    StreamConfig
	logger *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	state        atomic.Int32
	closed       atomic.Bool
	requestID    atomic.Uint64
	lastActivity atomic.Int64 // unix nanos of last inbound frame

	msgs chan StreamMessage
	done chan struct{}
}

// NewStreamClient creates a stream client. Run must be called to connect.
func NewStreamClient(cfg StreamConfig, logger *log.Logger) *StreamClient {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &StreamClient{
		cfg:    cfg,
		logger: logger,
		msgs:   make(chan StreamMessage, cfg.Buffer),
		done:   make(chan struct{}),
	}
}

// Messages returns the delivery channel. It is closed when Run returns.
func (c *StreamClient) Messages() <-chan StreamMessage {
	return c.msgs
}

// State returns the current connection state.
func (c *StreamClient) State() ConnState {
	return ConnState(c.state.Load())
}

// LastActivity returns the time of the last inbound frame.
func (c *StreamClient) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

func (c *StreamClient) setState(s ConnState) {
	c.state.Store(int32(s))
}

// Close requests a shutdown: the connection is closed, any pending
// reconnect timer is cancelled and Run returns nil.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()
	return nil
}

// Run connects, subscribes and consumes frames until the context is
// cancelled, Close is called, or MaxReconnects consecutive attempts fail.
// The Messages channel is closed on return.
func (c *StreamClient) Run(ctx context.Context) error {
	defer close(c.msgs)
	defer c.setState(StateClosing)

	attempt := 0
	for {
		if c.closed.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.connectAndSubscribe(ctx)
		if err == nil {
			c.setState(StateSubscribed)
			attempt = 0
			c.logger.Printf("[stream] subscribed: endpoint=%s method=%s mentions=%d",
				c.cfg.Endpoint, c.cfg.Method, len(c.cfg.Mentions))

			err = c.readLoop(ctx, conn)
			c.dropConn(conn)
		}
		c.setState(StateDisconnected)

		if c.closed.Load() {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		if c.cfg.MaxReconnects > 0 && attempt > c.cfg.MaxReconnects {
			c.logger.Printf("[stream] giving up after %d attempts: %v", attempt-1, err)
			return fmt.Errorf("%w: last error: %v", ErrMaxReconnects, err)
		}

		delay := Backoff(c.cfg.BackoffBase, c.cfg.BackoffCap, attempt)
		observability.RecordReconnect(c.cfg.Method)
		c.logger.Printf("[stream] connection lost (%v), reconnect attempt %d in %v", err, attempt, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(delay):
		}
	}
}

// connectAndSubscribe dials the endpoint, installs the keepalive handler,
// sends the subscribe request and waits for the confirmation.
func (c *StreamClient) connectAndSubscribe(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	// Provider pings are answered immediately; a failed pong is not
	// retried, the read loop detects the dead connection instead.
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData),
			time.Now().Add(c.cfg.WriteTimeout))
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if err := c.subscribe(conn); err != nil {
		c.dropConn(conn)
		return nil, err
	}

	return conn, nil
}

// subscribe sends the subscription request and reads until the matching
// confirmation arrives. Data frames that arrive first are delivered.
func (c *StreamClient) subscribe(conn *websocket.Conn) error {
	reqID := c.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  c.cfg.Method,
		Params:  c.subscribeParams(),
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read subscribe response: %w", err)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(data, &resp); err == nil && resp.ID == reqID {
			if resp.Error != nil {
				return fmt.Errorf("subscribe rejected: %s", resp.Error.Message)
			}
			return nil
		}

		// Not the confirmation; could already be a data frame.
		c.handleFrame(data)
	}
	return fmt.Errorf("subscription confirmation timeout")
}

func (c *StreamClient) subscribeParams() []interface{} {
	opts := map[string]interface{}{"commitment": c.cfg.Commitment}

	switch c.cfg.Method {
	case MethodTransactions:
		filter := map[string]interface{}{
			"vote":   false,
			"failed": false,
		}
		if len(c.cfg.Mentions) > 0 {
			filter["accountInclude"] = c.cfg.Mentions
		}
		opts["encoding"] = "json"
		opts["transactionDetails"] = "full"
		opts["maxSupportedTransactionVersion"] = 0
		return []interface{}{filter, opts}
	default:
		filter := map[string]interface{}{}
		if len(c.cfg.Mentions) > 0 {
			filter["mentions"] = c.cfg.Mentions
		} else {
			filter["all"] = nil
		}
		return []interface{}{filter, opts}
	}
}

// readLoop consumes frames until the connection drops. Frames are handed
// off strictly in arrival order.
func (c *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		c.lastActivity.Store(time.Now().UnixNano())
		c.handleFrame(data)
	}
}

// handleFrame parses one inbound frame and delivers it. Delivery blocks
// rather than dropping; the consumer is expected to keep up or the
// provider connection is allowed to fall behind.
func (c *StreamClient) handleFrame(data []byte) {
	var notif wsNotification
	if err := json.Unmarshal(data, &notif); err != nil || notif.Params == nil {
		return
	}

	var msg StreamMessage
	switch notif.Method {
	case "logsNotification":
		var res wsLogsResult
		if err := json.Unmarshal(notif.Params.Result, &res); err != nil {
			c.logger.Printf("[stream] bad logsNotification: %v", err)
			return
		}
		msg = StreamMessage{
			Signature: res.Value.Signature,
			Slot:      res.Context.Slot,
			Logs:      res.Value.Logs,
			Err:       res.Value.Err,
		}
	case "transactionNotification":
		var res wsTransactionResult
		if err := json.Unmarshal(notif.Params.Result, &res); err != nil {
			c.logger.Printf("[stream] bad transactionNotification: %v", err)
			return
		}
		inner := getTransactionResult{
			Slot:        res.Slot,
			Meta:        res.Transaction.Meta,
			Transaction: &res.Transaction.Transaction,
		}
		tx := inner.toTransaction(res.Signature)
		var txErr interface{}
		var logs []string
		if tx.Meta != nil {
			txErr = tx.Meta.Err
			logs = tx.Meta.LogMessages
		}
		msg = StreamMessage{
			Signature:   tx.Signature,
			Slot:        tx.Slot,
			Logs:        logs,
			Err:         txErr,
			Transaction: tx,
		}
	case "":
		return
	default:
		// Non-RPC feeds (order book streams) deliver their payload raw.
		msg = StreamMessage{Raw: notif.Params.Result}
	}

	select {
	case c.msgs <- msg:
	case <-c.done:
	}
}

// dropConn closes conn and clears it if it is still current.
func (c *StreamClient) dropConn(conn *websocket.Conn) {
	conn.Close()
	c.connMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connMu.Unlock()
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  int64     `json:"result"` // subscription ID
	Error   *rpcError `json:"error,omitempty"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type wsLogsResult struct {
	Context wsContext   `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

type wsTransactionResult struct {
	Signature   string             `json:"signature"`
	Slot        int64              `json:"slot"`
	Transaction wsTransactionInner `json:"transaction"`
}

type wsTransactionInner struct {
	Transaction rawTransactionTx `json:"transaction"`
	Meta        *rawMeta         `json:"meta"`
}
