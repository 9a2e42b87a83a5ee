// Package chat defines the contract between the image search plugin and the
// messaging transports that deliver group messages to it.
package chat

import (
	"context"

	"github.com/edgard/searchbyimage/internal/trigger"
)

// Event is a group message delivered by a transport.
type Event struct {
	Transport string
	ChatID    string
	MessageID string
	UserID    string
	Message   trigger.Message
}

// Reply is sent back to the originating group as a quote of the original
// message, followed by the searched image and the result text.
type Reply struct {
	QuoteMessageID string
	Image          trigger.Image
	Text           string
}

// Handler processes one event. Transports may call it concurrently.
type Handler func(ctx context.Context, event Event)

// ImageResolver turns an image segment into a URL the search API can fetch.
type ImageResolver interface {
	ImageURL(ctx context.Context, img trigger.Image) (string, error)
}

// Transport is a messaging backend.
type Transport interface {
	ImageResolver

	// Name identifies the transport in logs and the search log.
	Name() string

	// Subscribe registers h for group messages. The returned function removes it.
	Subscribe(h Handler) (unsubscribe func())

	// SendReply delivers reply to the group the event came from.
	SendReply(ctx context.Context, event Event, reply Reply) error

	// Start receives events until ctx is cancelled or the connection fails.
	Start(ctx context.Context) error
}
