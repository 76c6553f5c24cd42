package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/player"
	"github.com/mmcdole/reel/internal/tui/styles"
)

// playerIndicator renders the pool state of a row
func playerIndicator(s player.State) (string, *lipgloss.Color) {
	switch s {
	case player.Preparing:
		return styles.PreparingChar, &styles.DimGray
	case player.Prepared:
		return styles.PreparedChar, &styles.LightGray
	case player.Active:
		return styles.PlayingChar, &styles.Accent
	case player.Paused:
		return styles.PausedChar, &styles.Teal
	default:
		return styles.IdleChar, nil
	}
}

// RenderVideoRow renders one feed entry for the list
func RenderVideoRow(v domain.VideoRecord, ps player.State, ready, selected bool, matched []int, width int) string {
	indicator, indicatorFg := playerIndicator(ps)

	thumb := " "
	if ready {
		thumb = "▪"
	}

	duration := v.FormattedDuration()
	views := domain.FormatCount(v.ViewCount)
	meta := fmt.Sprintf(" %6s  %5s", views, duration)

	titleWidth := width - lipgloss.Width(meta) - 6
	title := styles.Truncate(v.Title, titleWidth)

	parts := []styles.RowPart{
		{Text: indicator, Foreground: indicatorFg},
		{Text: thumb + " ", Foreground: &styles.Teal},
	}
	parts = append(parts, highlightParts(title, matched)...)
	if pad := titleWidth - lipgloss.Width(title); pad > 0 {
		parts = append(parts, styles.RowPart{Text: strings.Repeat(" ", pad)})
	}
	parts = append(parts, styles.RowPart{Text: meta, Foreground: &styles.DimGray})

	return styles.RenderListRow(parts, selected, width)
}

// highlightParts splits title into runs, coloring the bytes at matched
func highlightParts(title string, matched []int) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: title}}
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	var parts []styles.RowPart
	var run strings.Builder
	runHit := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		p := styles.RowPart{Text: run.String()}
		if runHit {
			p.Foreground = &styles.Accent
		}
		parts = append(parts, p)
		run.Reset()
	}
	for i, r := range title {
		if hit[i] != runHit {
			flush()
			runHit = hit[i]
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

// RenderInspector renders the detail panel for v
func RenderInspector(v *domain.VideoRecord, thumb string, ps player.State, width int) string {
	if v == nil {
		return styles.DimStyle.Render("No video selected")
	}

	var b strings.Builder

	if thumb != "" {
		b.WriteString(thumb)
		b.WriteString("\n\n")
	}

	b.WriteString(styles.TitleStyle.Width(width).Render(wordWrap(v.Title, width)))
	b.WriteString("\n")

	if v.AuthorName != "" {
		b.WriteString(styles.SubtitleStyle.Render("@" + v.AuthorName))
		b.WriteString("\n")
	}

	stats := fmt.Sprintf("%s views · %s likes · %s comments · %s",
		domain.FormatCount(v.ViewCount),
		domain.FormatCount(v.LikeCount),
		domain.FormatCount(v.CommentCount),
		v.FormattedDuration())
	b.WriteString(styles.DimStyle.Render(wordWrap(stats, width)))
	b.WriteString("\n")

	if v.Location != "" {
		b.WriteString(styles.DimStyle.Render("Location: " + v.Location))
		b.WriteString("\n")
	}
	if !v.PublishedAt.IsZero() {
		b.WriteString(styles.DimStyle.Render("Published: " + v.PublishedAt.Format("2006-01-02 15:04")))
		b.WriteString("\n")
	}
	if ps != player.Uncreated {
		b.WriteString(styles.DimStyle.Render("Player: " + ps.String()))
		b.WriteString("\n")
	}

	if len(v.Tags) > 0 {
		tags := make([]string, len(v.Tags))
		for i, t := range v.Tags {
			tags[i] = "#" + t
		}
		b.WriteString("\n")
		b.WriteString(styles.TagStyle.Render(wordWrap(strings.Join(tags, " "), width)))
		b.WriteString("\n")
	}

	if v.Description != "" {
		b.WriteString("\n")
		b.WriteString(styles.SubtitleStyle.Render(wordWrap(v.Description, width)))
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wordLen := lipgloss.Width(word)

		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}

		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}

		result.WriteString(word)
		lineLen += wordLen
	}

	return result.String()
}

// RenderError renders an error message
func RenderError(msg string, width int) string {
	return styles.ErrorStyle.Render(wordWrap("Error: "+msg, width-4))
}
