package onebot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/trigger"
)

// rawEvent is any frame pushed by the implementation: an event or an API
// response (identified by a non-empty echo).
type rawEvent struct {
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	MessageID   json.RawMessage `json:"message_id"`
	UserID      json.RawMessage `json:"user_id"`
	GroupID     json.RawMessage `json:"group_id"`
	RawMessage  string          `json:"raw_message"`
	Message     json.RawMessage `json:"message"`

	Echo    string          `json:"echo"`
	Status  json.RawMessage `json:"status"`
	RetCode json.RawMessage `json:"retcode"`
	Wording string          `json:"wording"`
}

type segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

var cqPattern = regexp.MustCompile(`\[CQ:([a-zA-Z0-9_]+)(?:,([^\]]*))?\]`)

var cqUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&#44;", ",", "&amp;", "&")

func parseInt64(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, fmt.Errorf("cannot parse as int64: %s", string(raw))
}

func dataString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// parseMessage decodes a message field, which is either a segment array or
// a CQ-coded string. rawMessage is used when message is absent.
func parseMessage(raw json.RawMessage, rawMessage string) []trigger.Segment {
	if len(raw) == 0 || string(raw) == "null" {
		return parseCQ(rawMessage)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseCQ(s)
	}

	var segments []segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return parseCQ(rawMessage)
	}

	out := make([]trigger.Segment, 0, len(segments))
	for _, seg := range segments {
		switch seg.Type {
		case "text":
			if t, ok := seg.Data["text"].(string); ok && t != "" {
				out = append(out, trigger.Text(t))
			}
		case "image":
			out = append(out, trigger.Picture(trigger.Image{
				ID:  dataString(seg.Data["file"]),
				URL: dataString(seg.Data["url"]),
			}))
		case "at":
			out = append(out, trigger.Mention(dataString(seg.Data["qq"])))
		}
	}
	return out
}

func parseCQParams(params string) map[string]string {
	result := make(map[string]string)
	for _, item := range strings.Split(params, ",") {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		result[key] = cqUnescaper.Replace(strings.TrimSpace(value))
	}
	return result
}

func parseCQ(content string) []trigger.Segment {
	if content == "" {
		return nil
	}

	var out []trigger.Segment
	cursor := 0
	for _, m := range cqPattern.FindAllStringSubmatchIndex(content, -1) {
		if m[0] > cursor {
			out = append(out, trigger.Text(cqUnescaper.Replace(content[cursor:m[0]])))
		}

		var params map[string]string
		if m[4] >= 0 {
			params = parseCQParams(content[m[4]:m[5]])
		}
		switch content[m[2]:m[3]] {
		case "image":
			out = append(out, trigger.Picture(trigger.Image{ID: params["file"], URL: params["url"]}))
		case "at":
			out = append(out, trigger.Mention(params["qq"]))
		}
		cursor = m[1]
	}
	if cursor < len(content) {
		out = append(out, trigger.Text(cqUnescaper.Replace(content[cursor:])))
	}
	return out
}

// toEvent converts a group message frame into a chat event.
func toEvent(raw *rawEvent) (chat.Event, bool) {
	if raw.Echo != "" || raw.PostType != "message" || raw.MessageType != "group" {
		return chat.Event{}, false
	}

	groupID, err := parseInt64(raw.GroupID)
	if err != nil || groupID == 0 {
		return chat.Event{}, false
	}
	userID, _ := parseInt64(raw.UserID)

	return chat.Event{
		Transport: config.TransportOneBot,
		ChatID:    strconv.FormatInt(groupID, 10),
		MessageID: strings.Trim(string(raw.MessageID), `"`),
		UserID:    strconv.FormatInt(userID, 10),
		Message:   trigger.NewMessage(parseMessage(raw.Message, raw.RawMessage)...),
	}, true
}

// replySegments builds the outgoing message: a quote of the request, the
// searched image, then the result text.
func replySegments(reply chat.Reply) []segment {
	out := make([]segment, 0, 3)
	if reply.QuoteMessageID != "" {
		out = append(out, segment{Type: "reply", Data: map[string]any{"id": reply.QuoteMessageID}})
	}
	file := reply.Image.URL
	if file == "" {
		file = reply.Image.ID
	}
	if file != "" {
		out = append(out, segment{Type: "image", Data: map[string]any{"file": file}})
	}
	out = append(out, segment{Type: "text", Data: map[string]any{"text": reply.Text}})
	return out
}
