package onebot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/trigger"
)

func TestParseMessageSegments(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`[
		{"type":"reply","data":{"id":"9"}},
		{"type":"text","data":{"text":"以图搜图 "}},
		{"type":"image","data":{"file":"abc.image","url":"https://gchat.example/abc"}},
		{"type":"text","data":{"text":" 92.5"}},
		{"type":"at","data":{"qq":10001}},
		{"type":"face","data":{"id":"1"}}
	]`)
	msg := trigger.NewMessage(parseMessage(raw, "")...)

	assert.Equal(t, "以图搜图 [图片] 92.5@10001", msg.Content())
	req, ok := trigger.Detect(msg)
	require.True(t, ok)
	assert.Equal(t, 92.5, req.Threshold)
	assert.Equal(t, trigger.Image{ID: "abc.image", URL: "https://gchat.example/abc"}, req.Image)
}

func TestParseMessageCQ(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     json.RawMessage
		rawMsg  string
		content string
		image   trigger.Image
	}{
		{
			name:    "cq string",
			raw:     json.RawMessage(`"以图搜图[CQ:image,file=a.jpg,url=https://x.example/a?x=1&amp;y=2]"`),
			content: "以图搜图[图片]",
			image:   trigger.Image{ID: "a.jpg", URL: "https://x.example/a?x=1&y=2"},
		},
		{
			name:    "raw message fallback",
			rawMsg:  "[CQ:at,qq=1] 以图搜图\n[CQ:image,file=b.jpg]\n75",
			content: "@1 以图搜图\n[图片]\n75",
			image:   trigger.Image{ID: "b.jpg"},
		},
		{
			name:    "escaped brackets stay text",
			raw:     json.RawMessage(`"&#91;图片&#93; hi"`),
			content: "[图片] hi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := trigger.NewMessage(parseMessage(tt.raw, tt.rawMsg)...)
			assert.Equal(t, tt.content, msg.Content())
			img, ok := msg.FirstImage()
			assert.Equal(t, tt.image != (trigger.Image{}), ok)
			assert.Equal(t, tt.image, img)
		})
	}
}

func TestToEvent(t *testing.T) {
	t.Parallel()

	var raw rawEvent
	require.NoError(t, json.Unmarshal([]byte(`{
		"post_type":"message","message_type":"group","message_id":-2147,
		"user_id":"555","group_id":123456,
		"message":[{"type":"text","data":{"text":"以图搜图"}},{"type":"image","data":{"file":"f","url":"https://u"}}]
	}`), &raw))

	event, ok := toEvent(&raw)
	require.True(t, ok)
	assert.Equal(t, "onebot", event.Transport)
	assert.Equal(t, "123456", event.ChatID)
	assert.Equal(t, "-2147", event.MessageID)
	assert.Equal(t, "555", event.UserID)
	assert.Equal(t, "以图搜图[图片]", event.Message.Content())

	for _, frame := range []string{
		`{"post_type":"message","message_type":"private","user_id":1,"message":"以图搜图"}`,
		`{"post_type":"meta_event","meta_event_type":"heartbeat"}`,
		`{"status":"ok","retcode":0,"echo":"send_group_msg_1"}`,
	} {
		var other rawEvent
		require.NoError(t, json.Unmarshal([]byte(frame), &other))
		_, ok := toEvent(&other)
		assert.False(t, ok, frame)
	}
}

func TestReplySegments(t *testing.T) {
	t.Parallel()

	segs := replySegments(chat.Reply{
		QuoteMessageID: "77",
		Image:          trigger.Image{ID: "f.jpg", URL: "https://u/f"},
		Text:           "result",
	})
	require.Len(t, segs, 3)
	assert.Equal(t, "reply", segs[0].Type)
	assert.Equal(t, "77", segs[0].Data["id"])
	assert.Equal(t, "image", segs[1].Type)
	assert.Equal(t, "https://u/f", segs[1].Data["file"])
	assert.Equal(t, "text", segs[2].Type)
	assert.Equal(t, "result", segs[2].Data["text"])

	segs = replySegments(chat.Reply{Image: trigger.Image{ID: "f.jpg"}, Text: "t"})
	require.Len(t, segs, 2)
	assert.Equal(t, "f.jpg", segs[0].Data["file"])
}
