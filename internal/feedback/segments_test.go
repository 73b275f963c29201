package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-strategy-gateway/pkg/types"
)

func item(id string, start, end int) types.FeedbackItem {
	return types.FeedbackItem{ID: id, Type: types.FeedbackImprovement, StartIndex: start, EndIndex: end}
}

func TestSort_StableByStart(t *testing.T) {
	items := []types.FeedbackItem{item("b", 5, 8), item("a1", 0, 2), item("c", 5, 6), item("a2", 0, 1)}

	sorted := Sort(items)

	ids := make([]string, len(sorted))
	for i, it := range sorted {
		ids[i] = it.ID
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, ids)
	assert.Equal(t, "b", items[0].ID, "input is untouched")
}

func TestSegments(t *testing.T) {
	text := "A CRM for freelancers"

	tests := []struct {
		name  string
		items []types.FeedbackItem
		want  []Segment
	}{
		{
			name:  "no feedback",
			items: nil,
			want:  []Segment{{Text: text}},
		},
		{
			name:  "disjoint spans out of order",
			items: []types.FeedbackItem{item("late", 6, 21), item("early", 0, 5)},
			want: []Segment{
				{Text: "A CRM", Item: &types.FeedbackItem{ID: "early", Type: types.FeedbackImprovement, StartIndex: 0, EndIndex: 5}},
				{Text: " "},
				{Text: "for freelancers", Item: &types.FeedbackItem{ID: "late", Type: types.FeedbackImprovement, StartIndex: 6, EndIndex: 21}},
			},
		},
		{
			name:  "overlap keeps the first span and trims the next",
			items: []types.FeedbackItem{item("first", 2, 9), item("second", 6, 13)},
			want: []Segment{
				{Text: "A "},
				{Text: "CRM for", Item: &types.FeedbackItem{ID: "first", Type: types.FeedbackImprovement, StartIndex: 2, EndIndex: 9}},
				{Text: " fre", Item: &types.FeedbackItem{ID: "second", Type: types.FeedbackImprovement, StartIndex: 6, EndIndex: 13}},
				{Text: "elancers"},
			},
		},
		{
			name:  "covered span is dropped",
			items: []types.FeedbackItem{item("outer", 0, 9), item("inner", 2, 5)},
			want: []Segment{
				{Text: "A CRM for", Item: &types.FeedbackItem{ID: "outer", Type: types.FeedbackImprovement, StartIndex: 0, EndIndex: 9}},
				{Text: " freelancers"},
			},
		},
		{
			name:  "offsets past the end are clamped",
			items: []types.FeedbackItem{item("tail", 10, 99), item("beyond", 40, 50)},
			want: []Segment{
				{Text: "A CRM for "},
				{Text: "freelancers", Item: &types.FeedbackItem{ID: "tail", Type: types.FeedbackImprovement, StartIndex: 10, EndIndex: 99}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segments(text, tt.items)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, text, Join(got))
		})
	}
}

func TestSegments_RuneOffsets(t *testing.T) {
	text := "Café für Teams"

	got := Segments(text, []types.FeedbackItem{item("u", 5, 8)})

	require.Len(t, got, 3)
	assert.Equal(t, "Café ", got[0].Text)
	assert.Equal(t, "für", got[1].Text)
	assert.True(t, got[1].Highlighted())
	assert.Equal(t, text, Join(got))
}

func TestSegments_EmptyText(t *testing.T) {
	got := Segments("", []types.FeedbackItem{item("x", 0, 3)})
	assert.Equal(t, []Segment{{Text: ""}}, got)
}

func TestSegments_ConcatenationAlwaysMatches(t *testing.T) {
	text := "Busy parents who cook on weeknights"
	items := []types.FeedbackItem{
		item("a", 3, 12), item("b", -4, 2), item("c", 10, 20), item("d", 30, 25),
		item("e", 20, 20), item("f", 18, 35), item("g", 0, 100),
	}

	got := Segments(text, items)

	assert.Equal(t, text, Join(got))
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Highlighted() || got[i-1].Highlighted(), "no two plain segments are adjacent")
	}
}
