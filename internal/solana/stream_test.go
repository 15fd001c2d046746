package solana

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"solana-whale-watch/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// confirmSubscribe reads the subscribe request and replies with a
// subscription confirmation. Returns the parsed request.
func confirmSubscribe(t *testing.T, conn *websocket.Conn) wsRequest {
	t.Helper()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read subscribe request: %v", err)
	}

	var req wsRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		t.Fatalf("unmarshal subscribe request: %v", err)
	}

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 7}
	if err := conn.WriteJSON(resp); err != nil {
		t.Fatalf("write subscribe response: %v", err)
	}
	return req
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestStreamClient_SubscribeAndReceive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		req := confirmSubscribe(t, conn)
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}

		notif := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 12345},
					"value": map[string]interface{}{
						"signature": "sig1",
						"logs":      []string{"Program log: hello"},
						"err":       nil,
					},
				},
			},
		}
		if err := conn.WriteJSON(notif); err != nil {
			return
		}

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewStreamClient(StreamConfig{
		Endpoint: wsURL(server),
		Method:   MethodLogs,
		Mentions: []string{"prog1"},
	}, log.New(log.Writer(), "[test] ", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	select {
	case msg := <-client.Messages():
		if msg.Signature != "sig1" {
			t.Errorf("expected signature sig1, got %s", msg.Signature)
		}
		if msg.Slot != 12345 {
			t.Errorf("expected slot 12345, got %d", msg.Slot)
		}
		if len(msg.Logs) != 1 {
			t.Errorf("expected 1 log line, got %d", len(msg.Logs))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for notification")
	}

	if got := client.State(); got != StateSubscribed {
		t.Errorf("expected subscribed state, got %v", got)
	}

	client.Close()
	select {
	case <-runErr:
	case <-ctx.Done():
		t.Fatal("Run did not return after Close")
	}
	if got := client.State(); got != StateClosing {
		t.Errorf("expected closing state after shutdown, got %v", got)
	}
}

func TestStreamClient_TransactionNotification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		req := confirmSubscribe(t, conn)
		if req.Method != "transactionSubscribe" {
			t.Errorf("expected transactionSubscribe, got %s", req.Method)
		}

		notif := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "transactionNotification",
			"params": map[string]interface{}{
				"subscription": 7,
				"result": map[string]interface{}{
					"signature": "txsig",
					"slot":      99,
					"transaction": map[string]interface{}{
						"transaction": map[string]interface{}{
							"signatures": []string{"txsig"},
							"message": map[string]interface{}{
								"accountKeys": []string{"A", "B", "C"},
								"instructions": []map[string]interface{}{
									{"programIdIndex": 2, "accounts": []int{0, 1}, "data": "3Bxs4h24hBtQy9rw"},
								},
							},
						},
						"meta": map[string]interface{}{
							"err":         nil,
							"logMessages": []string{"Program log: Instruction: Migrate"},
						},
					},
				},
			},
		}
		if err := conn.WriteJSON(notif); err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewStreamClient(StreamConfig{
		Endpoint: wsURL(server),
		Method:   MethodTransactions,
		Mentions: []string{"prog1"},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	select {
	case msg := <-client.Messages():
		if msg.Transaction == nil {
			t.Fatal("expected transaction payload")
		}
		if msg.Signature != "txsig" || msg.Slot != 99 {
			t.Errorf("unexpected signature/slot: %s/%d", msg.Signature, msg.Slot)
		}
		if msg.Transaction.Message == nil || len(msg.Transaction.Message.AccountKeys) != 3 {
			t.Error("expected 3 account keys in message")
		}
		if len(msg.Transaction.Message.Instructions) != 1 {
			t.Error("expected 1 instruction in message")
		}
		// meta.logMessages must surface on the message itself so log-based
		// detection works without a separate logs feed.
		if len(msg.Logs) != 1 || msg.Logs[0] != "Program log: Instruction: Migrate" {
			t.Errorf("expected meta log messages on the stream message, got %v", msg.Logs)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for transaction notification")
	}
}

func TestStreamClient_AnswersPing(t *testing.T) {
	gotPong := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		confirmSubscribe(t, conn)

		conn.SetPongHandler(func(string) error {
			select {
			case gotPong <- struct{}{}:
			default:
			}
			return nil
		})

		if err := conn.WriteControl(websocket.PingMessage, []byte("ka"), time.Now().Add(time.Second)); err != nil {
			return
		}

		// Reading drives the pong handler.
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := NewStreamClient(StreamConfig{Endpoint: wsURL(server)}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	select {
	case <-gotPong:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive pong reply")
	}
}

func TestStreamClient_ReconnectsAfterDrop(t *testing.T) {
	connects := make(chan struct{}, 4)
	reconnectsBefore := testutil.ToFloat64(
		observability.DefaultMetrics.Reconnects.WithLabelValues(MethodLogs))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connects <- struct{}{}
		confirmSubscribe(t, conn)
		// Drop the connection immediately after confirming.
		conn.Close()
	}))
	defer server.Close()

	client := NewStreamClient(StreamConfig{
		Endpoint:    wsURL(server),
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  50 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go client.Run(ctx)
	defer client.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-ctx.Done():
			t.Fatalf("expected at least 2 connection attempts, got %d", i)
		}
	}

	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(observability.DefaultMetrics.Reconnects.WithLabelValues(MethodLogs)) < reconnectsBefore+1 {
		if !time.Now().Before(deadline) {
			t.Error("reconnect attempt not recorded in metrics")
			break
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStreamClient_MaxReconnects(t *testing.T) {
	client := NewStreamClient(StreamConfig{
		Endpoint:      "ws://127.0.0.1:1", // nothing listens here
		BackoffBase:   time.Millisecond,
		BackoffCap:    5 * time.Millisecond,
		MaxReconnects: 3,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := client.Run(ctx)
	if err == nil {
		t.Fatal("expected error after exhausting reconnect attempts")
	}
	if !errors.Is(err, ErrMaxReconnects) {
		t.Errorf("expected ErrMaxReconnects, got %v", err)
	}
}
