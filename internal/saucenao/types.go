package saucenao

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Response is the subset of a SauceNAO JSON reply that the bot consumes.
type Response struct {
	Header  ResponseHeader `json:"header"`
	Results []Result       `json:"results"`
}

// ResponseHeader carries the API status. Negative or positive non-zero
// status values indicate a client or server side failure.
type ResponseHeader struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Result is one match, in the order the API returned it.
type Result struct {
	Header *ResultHeader `json:"header"`
	Data   *ResultData   `json:"data"`
}

// ResultHeader holds the match confidence.
type ResultHeader struct {
	Similarity *Similarity `json:"similarity"`
}

// ResultData holds the external source links. ExtURLs is nil when the API
// omits the field.
type ResultData struct {
	ExtURLs []string `json:"ext_urls"`
}

// Similarity is a 0-100 score. SauceNAO sends it as a quoted string; plain
// JSON numbers are accepted too.
type Similarity float64

// UnmarshalJSON accepts both "93.12" and 93.12.
func (s *Similarity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("invalid similarity %q: %w", text, err)
		}
		*s = Similarity(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*s = Similarity(v)
	return nil
}

// Value returns the similarity as a float64.
func (r Result) Value() float64 {
	if r.Header == nil || r.Header.Similarity == nil {
		return 0
	}
	return float64(*r.Header.Similarity)
}

// URLs returns the external links of the result, nil when absent.
func (r Result) URLs() []string {
	if r.Data == nil {
		return nil
	}
	return r.Data.ExtURLs
}
