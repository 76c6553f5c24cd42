package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlightParts(t *testing.T) {
	parts := highlightParts("street food", []int{0, 1, 7})
	require.Len(t, parts, 4)

	assert.Equal(t, "st", parts[0].Text)
	assert.NotNil(t, parts[0].Foreground)
	assert.Equal(t, "reet ", parts[1].Text)
	assert.Nil(t, parts[1].Foreground)
	assert.Equal(t, "f", parts[2].Text)
	assert.NotNil(t, parts[2].Foreground)
	assert.Equal(t, "ood", parts[3].Text)
}

func TestHighlightPartsNoMatch(t *testing.T) {
	parts := highlightParts("plain", nil)
	require.Len(t, parts, 1)
	assert.Equal(t, "plain", parts[0].Text)
}

func TestWordWrap(t *testing.T) {
	assert.Equal(t, "one two\nthree", wordWrap("one two three", 8))
	assert.Equal(t, "unchanged", wordWrap("unchanged", 0))
	assert.Equal(t, "a b c", wordWrap("  a   b c ", 20))
}

func TestRenderVideoRowWidth(t *testing.T) {
	v := domain.VideoRecord{
		ID:              1,
		Title:           "a rather long title that will not fit in a narrow list",
		ViewCount:       12500,
		DurationSeconds: 75,
	}

	for _, selected := range []bool{false, true} {
		row := RenderVideoRow(v, player.Active, true, selected, nil, 50)
		assert.Equal(t, 50, lipgloss.Width(row))
		assert.Contains(t, row, "...")
	}
}

func TestRenderInspector(t *testing.T) {
	v := domain.VideoRecord{
		Title:      "Night market",
		AuthorName: "wanderer",
		Location:   "Taipei",
		Tags:       []string{"food", "travel", "night"},
	}

	out := RenderInspector(&v, "", player.Paused, 40)
	for _, want := range []string{"Night market", "@wanderer", "Taipei", "#food", "#travel", "Player: paused"} {
		assert.True(t, strings.Contains(out, want), "missing %q", want)
	}

	assert.Contains(t, RenderInspector(nil, "", player.Uncreated, 40), "No video selected")
}
