// Package trigger decides whether a group message asks for an image search and
// which similarity threshold applies.
package trigger

import (
	"regexp"
	"strconv"
)

// Phrase is the text that, followed by an image, requests a search.
const Phrase = "以图搜图"

// DefaultThreshold is used when the trigger carries no explicit number.
const DefaultThreshold = 80.0

var (
	plainPattern     = regexp.MustCompile(`(?ms)` + Phrase + `[ \n]*?\[图片]`)
	thresholdPattern = regexp.MustCompile(`(?ms)` + Phrase + `[ \n]*?\[图片][ \n]*?(\d\d?\.\d\d?|\d\d?)`)
)

// Request is a matched search request.
type Request struct {
	Image     Image
	Threshold float64
}

// Match inspects flattened message text. The threshold form is tried first;
// the plain form falls back to DefaultThreshold. The threshold is not range
// checked.
func Match(text string) (float64, bool) {
	if m := thresholdPattern.FindStringSubmatch(text); m != nil {
		threshold, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return threshold, true
		}
	}
	if plainPattern.MatchString(text) {
		return DefaultThreshold, true
	}
	return 0, false
}

// Detect returns the search request carried by msg. A message whose text
// matches but has no image segment is not a request.
func Detect(msg Message) (Request, bool) {
	threshold, ok := Match(msg.Content())
	if !ok {
		return Request{}, false
	}
	img, ok := msg.FirstImage()
	if !ok {
		return Request{}, false
	}
	return Request{Image: img, Threshold: threshold}, true
}
