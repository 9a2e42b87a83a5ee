package trigger

import "strings"

// ImagePlaceholder is how an image segment appears in a flattened message.
const ImagePlaceholder = "[图片]"

// SegmentType identifies the kind of a message segment.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentImage   SegmentType = "image"
	SegmentMention SegmentType = "at"
)

// Image references a picture attached to a chat message. ID is the
// transport's own handle for it (Telegram file id, OneBot file name); URL is
// set when the transport already knows a publicly fetchable address.
type Image struct {
	ID  string
	URL string
}

// Segment is one element of a message chain.
type Segment struct {
	Type  SegmentType
	Text  string
	Image Image
}

// Text builds a text segment.
func Text(s string) Segment {
	return Segment{Type: SegmentText, Text: s}
}

// Picture builds an image segment.
func Picture(img Image) Segment {
	return Segment{Type: SegmentImage, Image: img}
}

// Mention builds a mention segment for the given user id.
func Mention(id string) Segment {
	return Segment{Type: SegmentMention, Text: id}
}

// Message is an ordered chain of segments as received from the chat.
type Message struct {
	Segments []Segment
}

// NewMessage builds a message from segments.
func NewMessage(segments ...Segment) Message {
	return Message{Segments: segments}
}

// Content flattens the chain into plain text. Images render as
// ImagePlaceholder and mentions as "@id".
func (m Message) Content() string {
	var sb strings.Builder
	for _, seg := range m.Segments {
		switch seg.Type {
		case SegmentText:
			sb.WriteString(seg.Text)
		case SegmentImage:
			sb.WriteString(ImagePlaceholder)
		case SegmentMention:
			sb.WriteString("@")
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}

// FirstImage returns the first image segment of the chain.
func (m Message) FirstImage() (Image, bool) {
	for _, seg := range m.Segments {
		if seg.Type == SegmentImage {
			return seg.Image, true
		}
	}
	return Image{}, false
}
