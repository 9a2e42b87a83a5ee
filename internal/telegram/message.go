package telegram

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/trigger"
)

// isGroupChat reports whether the chat is a group or supergroup.
func isGroupChat(c models.Chat) bool {
	return c.Type == models.ChatTypeGroup || c.Type == models.ChatTypeSupergroup
}

// largestPhoto returns the biggest size Telegram offers for a photo.
func largestPhoto(sizes []models.PhotoSize) (models.PhotoSize, bool) {
	if len(sizes) == 0 {
		return models.PhotoSize{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best, true
}

// messageImage picks the image a message refers to: its own photo, or the
// photo of the message it replies to. text is the accompanying text.
func messageImage(msg *models.Message) (img trigger.Image, text string, ok bool) {
	if photo, found := largestPhoto(msg.Photo); found {
		return trigger.Image{ID: photo.FileID}, msg.Caption, true
	}
	if reply := msg.ReplyToMessage; reply != nil {
		if photo, found := largestPhoto(reply.Photo); found {
			return trigger.Image{ID: photo.FileID}, msg.Text, true
		}
	}
	return trigger.Image{}, "", false
}

// flatten lays out a Telegram caption and its photo as message segments.
// Telegram keeps the photo apart from the caption, so the image is placed
// right after the first occurrence of the trigger phrase. Without the phrase
// the image comes first.
//
// A placeholder typed by hand right after the phrase, as in
// "以图搜图 [图片] 85.5", stands for the photo and is replaced by it.
func flatten(text string, img trigger.Image) trigger.Message {
	idx := strings.Index(text, trigger.Phrase)
	if idx < 0 {
		if text == "" {
			return trigger.NewMessage(trigger.Picture(img))
		}
		return trigger.NewMessage(trigger.Picture(img), trigger.Text(text))
	}

	end := idx + len(trigger.Phrase)
	rest := text[end:]
	gap := len(rest) - len(strings.TrimLeft(rest, " \n"))
	if strings.HasPrefix(rest[gap:], trigger.ImagePlaceholder) {
		end += gap
		rest = rest[gap+len(trigger.ImagePlaceholder):]
	}

	segments := []trigger.Segment{trigger.Text(text[:end]), trigger.Picture(img)}
	if rest != "" {
		segments = append(segments, trigger.Text(rest))
	}
	return trigger.NewMessage(segments...)
}

// eventFromMessage converts a group message carrying an image into a chat
// event. It reports false for private chats and messages without an image.
func eventFromMessage(msg *models.Message) (chat.Event, bool) {
	if msg == nil || !isGroupChat(msg.Chat) {
		return chat.Event{}, false
	}
	img, text, ok := messageImage(msg)
	if !ok {
		return chat.Event{}, false
	}

	var userID string
	if msg.From != nil {
		userID = strconv.FormatInt(msg.From.ID, 10)
	}
	return chat.Event{
		Transport: config.TransportTelegram,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		MessageID: strconv.Itoa(msg.ID),
		UserID:    userID,
		Message:   flatten(text, img),
	}, true
}

// matchImageMessage selects updates the image search handler cares about.
func matchImageMessage(update *models.Update) bool {
	_, ok := eventFromMessage(update.Message)
	return ok
}
