// Package feedback lays feedback items over the text they annotate.
// Offsets are rune positions, matching how the gateway clamps them.
package feedback

import (
	"sort"

	"product-strategy-gateway/pkg/types"
)

// Segment is a run of text, highlighted when Item is set
type Segment struct {
	Text string              `json:"text"`
	Item *types.FeedbackItem `json:"item,omitempty"`
}

// Highlighted reports whether the segment carries feedback
func (s Segment) Highlighted() bool {
	return s.Item != nil
}

// Sort returns the items ordered by start index. Items with equal starts keep
// their original order. The input is not modified.
func Sort(items []types.FeedbackItem) []types.FeedbackItem {
	sorted := make([]types.FeedbackItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartIndex < sorted[j].StartIndex
	})
	return sorted
}

// Segments splits text into plain and highlighted runs. Spans are consumed left
// to right: the earlier span wins an overlap, a later span is cut to start where
// the previous one ended, and a span that is fully covered is dropped. Joining the
// segment texts always yields text.
func Segments(text string, items []types.FeedbackItem) []Segment {
	runes := []rune(text)
	n := len(runes)

	var segments []Segment
	lastIndex := 0

	for _, item := range Sort(items) {
		start := clamp(item.StartIndex, 0, n)
		end := clamp(item.EndIndex, 0, n)
		if start < lastIndex {
			start = lastIndex
		}
		if end <= start {
			continue
		}

		if start > lastIndex {
			segments = append(segments, Segment{Text: string(runes[lastIndex:start])})
		}
		item := item
		segments = append(segments, Segment{Text: string(runes[start:end]), Item: &item})
		lastIndex = end
	}

	if lastIndex < n || len(segments) == 0 {
		segments = append(segments, Segment{Text: string(runes[lastIndex:])})
	}
	return segments
}

// Join concatenates the segment texts
func Join(segments []Segment) string {
	var out []rune
	for _, s := range segments {
		out = append(out, []rune(s.Text)...)
	}
	return string(out)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
