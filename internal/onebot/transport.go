// Package onebot implements a chat transport over a OneBot v11 forward
// WebSocket connection, as served by go-cqhttp compatible QQ bots.
package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/config"
	apperrors "github.com/edgard/searchbyimage/internal/errors"
	"github.com/edgard/searchbyimage/internal/trigger"
)

var errNotConnected = errors.New("onebot websocket not connected")

type apiRequest struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo,omitempty"`
}

type sendGroupMsgParams struct {
	GroupID int64     `json:"group_id"`
	Message []segment `json:"message"`
}

// Transport is a OneBot v11 client. Each incoming event is handled on its
// own goroutine.
type Transport struct {
	cfg    config.OneBotConfig
	logger *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[int]chat.Handler
	nextID   int

	writeMu sync.Mutex
	echo    atomic.Int64
	wg      sync.WaitGroup
}

// NewTransport validates cfg and returns an unconnected transport.
func NewTransport(cfg config.OneBotConfig, logger *slog.Logger) (*Transport, error) {
	if cfg.WSURL == "" {
		return nil, apperrors.NewConfigError("onebot ws_url is not configured", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		cfg:      cfg,
		logger:   logger.With("component", "onebot_transport"),
		handlers: make(map[int]chat.Handler),
	}, nil
}

// Name implements chat.Transport.
func (t *Transport) Name() string { return config.TransportOneBot }

// Subscribe implements chat.Transport.
func (t *Transport) Subscribe(h chat.Handler) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.handlers[id] = h
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.handlers, id)
		t.mu.Unlock()
	}
}

// ImageURL implements chat.Transport. OneBot image segments carry a
// download URL; older implementations put it in the file field instead.
func (t *Transport) ImageURL(_ context.Context, img trigger.Image) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	if strings.HasPrefix(img.ID, "http://") || strings.HasPrefix(img.ID, "https://") {
		return img.ID, nil
	}
	return "", fmt.Errorf("image %q has no download url", img.ID)
}

// SendReply implements chat.Transport with a send_group_msg call. The API
// response is only logged.
func (t *Transport) SendReply(_ context.Context, event chat.Event, reply chat.Reply) error {
	groupID, err := strconv.ParseInt(event.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid onebot group id %q: %w", event.ChatID, err)
	}

	return t.call("send_group_msg", sendGroupMsgParams{
		GroupID: groupID,
		Message: replySegments(reply),
	})
}

func (t *Transport) call(action string, params any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}

	payload, err := json.Marshal(apiRequest{
		Action: action,
		Params: params,
		Echo:   fmt.Sprintf("%s_%d", action, t.echo.Add(1)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal onebot request: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write onebot request: %w", err)
	}
	return nil
}

// Start implements chat.Transport. It dials once and reads until ctx is
// cancelled or the connection drops; there is no reconnect.
func (t *Transport) Start(ctx context.Context) error {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.cfg.DialTimeout,
	}
	header := http.Header{}
	if t.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+t.cfg.AccessToken)
	}

	t.logger.Info("Connecting to OneBot", "ws_url", t.cfg.WSURL)
	conn, _, err := dialer.DialContext(ctx, t.cfg.WSURL, header)
	if err != nil {
		return apperrors.NewTransportError("failed to connect to onebot", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.logger.Info("OneBot websocket connected")

	stop := context.AfterFunc(ctx, func() {
		t.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	readErr := t.listen(ctx, conn)

	t.mu.Lock()
	t.conn = nil
	t.mu.Unlock()
	_ = conn.Close()
	t.wg.Wait()

	if ctx.Err() != nil {
		t.logger.Info("OneBot listener stopped")
		return nil
	}
	return apperrors.NewTransportError("onebot connection lost", readErr)
}

func (t *Transport) listen(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var raw rawEvent
		if err := json.Unmarshal(message, &raw); err != nil {
			t.logger.Warn("Failed to decode onebot frame", "error", err)
			continue
		}

		if raw.Echo != "" {
			t.logAPIResponse(&raw)
			continue
		}

		event, ok := toEvent(&raw)
		if !ok {
			continue
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.dispatch(ctx, event)
		}()
	}
}

func (t *Transport) dispatch(ctx context.Context, event chat.Event) {
	t.mu.Lock()
	handlers := make([]chat.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	t.mu.Unlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}

func (t *Transport) logAPIResponse(raw *rawEvent) {
	retcode, _ := parseInt64(raw.RetCode)
	if retcode != 0 {
		t.logger.Warn("OneBot API call failed", "echo", raw.Echo, "retcode", retcode, "wording", raw.Wording)
		return
	}
	t.logger.Debug("OneBot API call succeeded", "echo", raw.Echo)
}
