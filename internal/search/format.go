// Package search turns SauceNAO results into the reply text sent to the chat.
package search

import (
	"fmt"
	"strings"

	"github.com/edgard/searchbyimage/internal/saucenao"
)

// MaxAccepted caps the number of result lines in a reply.
const MaxAccepted = 5

// Format renders results against threshold. Results are taken in API order:
// entries without links are skipped, the first entry below threshold ends the
// scan, and at most MaxAccepted lines are written. The output is
// deterministic for a given input.
func Format(results []saucenao.Result, threshold float64) string {
	text, _ := render(results, threshold)
	return text
}

func render(results []saucenao.Result, threshold float64) (string, int) {
	var sb strings.Builder
	accepted := 0

	for _, r := range results {
		urls := r.URLs()
		if len(urls) == 0 {
			continue
		}
		similarity := r.Value()
		if similarity < threshold {
			break
		}
		if accepted >= MaxAccepted {
			break
		}
		if accepted == 0 {
			fmt.Fprintf(&sb, "在以下来源找到相似度大于%.2f%%的结果:\n", threshold)
		} else {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "相似度：%.2f%%，链接：%s", similarity, urls[0])
		accepted++
	}

	if accepted == 0 {
		return NoMatchText(threshold), 0
	}
	return sb.String(), accepted
}

// NoMatchText is the reply when nothing reaches threshold.
func NoMatchText(threshold float64) string {
	return fmt.Sprintf("未在任何来源中寻找到相似度大于%.2f%%的结果。", threshold)
}
