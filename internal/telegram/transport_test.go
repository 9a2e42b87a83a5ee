package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/trigger"
)

const testToken = "123456:TEST-token"

func groupMessage() *models.Message {
	return &models.Message{
		ID:   42,
		Chat: models.Chat{ID: -1001, Type: models.ChatTypeSupergroup},
		From: &models.User{ID: 7},
	}
}

func photos(ids ...string) []models.PhotoSize {
	out := make([]models.PhotoSize, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.PhotoSize{FileID: id, Width: 100 * (i + 1), Height: 100 * (i + 1)})
	}
	return out
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	img := trigger.Image{ID: "f"}
	tests := []struct {
		name    string
		text    string
		content string
	}{
		{"phrase only", "以图搜图", "以图搜图[图片]"},
		{"phrase with threshold", "以图搜图 85.5", "以图搜图[图片] 85.5"},
		{"text before phrase", "帮我 以图搜图 90", "帮我 以图搜图[图片] 90"},
		{"no phrase", "look at this", "[图片]look at this"},
		{"empty caption", "", "[图片]"},
		{"phrase twice", "以图搜图以图搜图", "以图搜图[图片]以图搜图"},
		{"typed placeholder", "以图搜图 [图片] 85.5", "以图搜图 [图片] 85.5"},
		{"typed placeholder without gap", "以图搜图[图片]", "以图搜图[图片]"},
		{"placeholder further away", "以图搜图 看看 [图片]", "以图搜图[图片] 看看 [图片]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := flatten(tt.text, img)
			assert.Equal(t, tt.content, msg.Content())
			got, ok := msg.FirstImage()
			require.True(t, ok)
			assert.Equal(t, img, got)
		})
	}
}

func TestEventFromMessage(t *testing.T) {
	t.Parallel()

	t.Run("captioned photo", func(t *testing.T) {
		t.Parallel()
		msg := groupMessage()
		msg.Photo = photos("small", "medium", "large")
		msg.Caption = "以图搜图 90"

		event, ok := eventFromMessage(msg)
		require.True(t, ok)
		assert.Equal(t, "telegram", event.Transport)
		assert.Equal(t, "-1001", event.ChatID)
		assert.Equal(t, "42", event.MessageID)
		assert.Equal(t, "7", event.UserID)

		req, ok := trigger.Detect(event.Message)
		require.True(t, ok)
		assert.Equal(t, "large", req.Image.ID)
		assert.Equal(t, 90.0, req.Threshold)
	})

	t.Run("caption with typed placeholder keeps threshold", func(t *testing.T) {
		t.Parallel()
		msg := groupMessage()
		msg.Photo = photos("p")
		msg.Caption = "以图搜图 [图片] 85.5"

		event, ok := eventFromMessage(msg)
		require.True(t, ok)
		req, ok := trigger.Detect(event.Message)
		require.True(t, ok)
		assert.Equal(t, "p", req.Image.ID)
		assert.Equal(t, 85.5, req.Threshold)
	})

	t.Run("reply to photo", func(t *testing.T) {
		t.Parallel()
		msg := groupMessage()
		msg.Text = "以图搜图"
		msg.ReplyToMessage = &models.Message{ID: 41, Photo: photos("orig")}

		event, ok := eventFromMessage(msg)
		require.True(t, ok)
		req, ok := trigger.Detect(event.Message)
		require.True(t, ok)
		assert.Equal(t, "orig", req.Image.ID)
		assert.Equal(t, 80.0, req.Threshold)
	})

	t.Run("private chat ignored", func(t *testing.T) {
		t.Parallel()
		msg := groupMessage()
		msg.Chat.Type = models.ChatTypePrivate
		msg.Photo = photos("p")
		_, ok := eventFromMessage(msg)
		assert.False(t, ok)
	})

	t.Run("text without photo ignored", func(t *testing.T) {
		t.Parallel()
		msg := groupMessage()
		msg.Text = "以图搜图"
		_, ok := eventFromMessage(msg)
		assert.False(t, ok)
		assert.False(t, matchImageMessage(&models.Update{Message: msg}))
	})

	t.Run("nil message ignored", func(t *testing.T) {
		t.Parallel()
		assert.False(t, matchImageMessage(&models.Update{}))
	})
}

type apiRecorder struct {
	mu    sync.Mutex
	calls map[string]map[string]string
}

func newAPIServer(t *testing.T) (*httptest.Server, *apiRecorder) {
	t.Helper()
	rec := &apiRecorder{calls: make(map[string]map[string]string)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		fields := make(map[string]string)
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				fields[k] = v[0]
			}
		}
		rec.mu.Lock()
		rec.calls[method] = fields
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "getFile":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"photo-1","file_unique_id":"u","file_path":"photos/file_1.jpg"}}`))
		default:
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":43,"date":0,"chat":{"id":-1001,"type":"supergroup"}}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestTransport(t *testing.T, srv *httptest.Server) *Transport {
	t.Helper()
	b, err := bot.New(testToken, bot.WithSkipGetMe(), bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	return NewTransport(b, testToken, nil, WithFileBaseURL("https://files.example"))
}

func TestTransportImageURL(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)
	tr := newTestTransport(t, srv)

	u, err := tr.ImageURL(context.Background(), trigger.Image{ID: "photo-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/file/bot"+testToken+"/photos/file_1.jpg", u)

	u, err = tr.ImageURL(context.Background(), trigger.Image{URL: "https://cdn.example/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", u)

	_, err = tr.ImageURL(context.Background(), trigger.Image{})
	assert.Error(t, err)
}

func TestTransportErrorsHideToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	serverURL := srv.URL
	srv.Close()

	b, err := bot.New(testToken, bot.WithSkipGetMe(), bot.WithServerURL(serverURL))
	require.NoError(t, err)
	tr := NewTransport(b, testToken, nil)

	_, err = tr.ImageURL(context.Background(), trigger.Image{ID: "photo-1"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
	assert.Contains(t, err.Error(), "failed to get file info")

	err = tr.SendReply(context.Background(), chat.Event{ChatID: "-1001"}, chat.Reply{Image: trigger.Image{ID: "photo-1"}, Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestErrorsHandler(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	handle := ErrorsHandler(testToken, slog.New(slog.NewTextHandler(&logs, nil)))
	cause := errors.New("boom")
	handle(fmt.Errorf("error do request for method getUpdates, Post \"https://api.example/bot%s/getUpdates\": %w", testToken, cause))

	assert.NotContains(t, logs.String(), testToken)
	assert.Contains(t, logs.String(), "bot123456:T.../getUpdates")
	assert.Contains(t, logs.String(), "Telegram API error")

	wrapped := redact(cause, testToken)
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, redact(nil, testToken))
}

func TestTransportSendReply(t *testing.T) {
	t.Parallel()

	srv, rec := newAPIServer(t)
	tr := newTestTransport(t, srv)

	event := chat.Event{Transport: "telegram", ChatID: "-1001", MessageID: "42"}
	err := tr.SendReply(context.Background(), event, chat.Reply{
		QuoteMessageID: "42",
		Image:          trigger.Image{ID: "photo-1"},
		Text:           "未在任何来源中寻找到相似度大于80.00%的结果。",
	})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	sent, ok := rec.calls["sendPhoto"]
	require.True(t, ok)
	assert.Equal(t, "-1001", sent["chat_id"])
	assert.Equal(t, "photo-1", sent["photo"])
	assert.Equal(t, "未在任何来源中寻找到相似度大于80.00%的结果。", sent["caption"])
	assert.Contains(t, sent["reply_parameters"], "42")
}

func TestTransportSendReplyRejectsBadIDs(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)
	tr := newTestTransport(t, srv)

	err := tr.SendReply(context.Background(), chat.Event{ChatID: "group"}, chat.Reply{})
	assert.Error(t, err)

	err = tr.SendReply(context.Background(), chat.Event{ChatID: "1"}, chat.Reply{QuoteMessageID: "x"})
	assert.Error(t, err)
}

func TestTransportSubscribe(t *testing.T) {
	t.Parallel()

	srv, _ := newAPIServer(t)
	tr := newTestTransport(t, srv)

	var got []chat.Event
	unsubscribe := tr.Subscribe(func(_ context.Context, e chat.Event) { got = append(got, e) })
	require.Len(t, tr.handlers, 1)

	unsubscribe()
	unsubscribe()
	assert.Empty(t, tr.handlers)
	assert.Equal(t, "telegram", tr.Name())
	assert.Empty(t, got)
}
