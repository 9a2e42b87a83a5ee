package trigger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/searchbyimage/internal/trigger"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		wantOK    bool
		threshold float64
	}{
		{name: "plain", text: "以图搜图[图片]", wantOK: true, threshold: 80.0},
		{name: "plain with spaces", text: "以图搜图   [图片]", wantOK: true, threshold: 80.0},
		{name: "plain with newlines", text: "以图搜图\n\n[图片]", wantOK: true, threshold: 80.0},
		{name: "unanchored", text: "帮我看看 以图搜图[图片] 谢谢", wantOK: true, threshold: 80.0},
		{name: "integer threshold", text: "以图搜图[图片]85", wantOK: true, threshold: 85},
		{name: "fractional threshold", text: "以图搜图[图片] 85.5", wantOK: true, threshold: 85.5},
		{name: "two fractional digits", text: "以图搜图\n[图片]\n92.25", wantOK: true, threshold: 92.25},
		{name: "single digit", text: "以图搜图[图片] 5", wantOK: true, threshold: 5},
		{name: "three digits truncated to two", text: "以图搜图[图片]100", wantOK: true, threshold: 10},
		{name: "zero", text: "以图搜图[图片] 0", wantOK: true, threshold: 0},
		{name: "non numeric suffix falls back", text: "以图搜图[图片] abc", wantOK: true, threshold: 80.0},
		{name: "tab is not a separator", text: "以图搜图\t[图片]", wantOK: false},
		{name: "image before phrase", text: "[图片]以图搜图", wantOK: false},
		{name: "no phrase", text: "[图片] 85", wantOK: false},
		{name: "no image", text: "以图搜图 85", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			threshold, ok := trigger.Match(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.threshold, threshold)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	first := trigger.Image{ID: "first", URL: "https://img.example/1.png"}
	second := trigger.Image{ID: "second", URL: "https://img.example/2.png"}

	t.Run("uses first image", func(t *testing.T) {
		t.Parallel()

		msg := trigger.NewMessage(
			trigger.Text("以图搜图"),
			trigger.Picture(first),
			trigger.Picture(second),
		)
		req, ok := trigger.Detect(msg)
		assert.True(t, ok)
		assert.Equal(t, first, req.Image)
		assert.Equal(t, trigger.DefaultThreshold, req.Threshold)
	})

	t.Run("explicit threshold", func(t *testing.T) {
		t.Parallel()

		msg := trigger.NewMessage(trigger.Text("以图搜图 "), trigger.Picture(first), trigger.Text(" 90.5"))
		req, ok := trigger.Detect(msg)
		assert.True(t, ok)
		assert.Equal(t, 90.5, req.Threshold)
	})

	t.Run("placeholder typed as text without image", func(t *testing.T) {
		t.Parallel()

		msg := trigger.NewMessage(trigger.Text("以图搜图[图片]"))
		_, ok := trigger.Detect(msg)
		assert.False(t, ok)
	})

	t.Run("image without phrase", func(t *testing.T) {
		t.Parallel()

		msg := trigger.NewMessage(trigger.Picture(first), trigger.Text("好看吗"))
		_, ok := trigger.Detect(msg)
		assert.False(t, ok)
	})
}

func TestMessageContent(t *testing.T) {
	t.Parallel()

	msg := trigger.NewMessage(
		trigger.Mention("10001"),
		trigger.Text(" 以图搜图"),
		trigger.Picture(trigger.Image{ID: "x"}),
	)
	assert.Equal(t, "@10001 以图搜图[图片]", msg.Content())

	_, ok := trigger.NewMessage(trigger.Text("hi")).FirstImage()
	assert.False(t, ok)
}
