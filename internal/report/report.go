// Package report provides the two rendering modes every section builder
// supports: plain text with separator lines and no markup, and
// lightweight markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format selects the rendering mode.
type Format int

const (
	FormatText Format = iota
	FormatMarkdown
)

// ParseFormat maps the wire flag to a Format; unknown values fall back to
// plain text.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "markdown") || strings.EqualFold(s, "md") {
		return FormatMarkdown
	}
	return FormatText
}

func (f Format) String() string {
	if f == FormatMarkdown {
		return "markdown"
	}
	return "text"
}

// Heading renders a section heading at the given level.
func Heading(f Format, level int, s string) string {
	if f == FormatMarkdown {
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + s
	}
	if level <= 1 {
		return strings.ToUpper(s) + "\n" + strings.Repeat("=", len(s))
	}
	return s + "\n" + strings.Repeat("-", len(s))
}

// Emphasis renders inline emphasis.
func Emphasis(f Format, s string) string {
	if f == FormatMarkdown {
		return "**" + s + "**"
	}
	return s
}

// Separator renders a between-section divider.
func Separator(f Format) string {
	if f == FormatMarkdown {
		return "---"
	}
	return strings.Repeat("=", 60)
}

// Bullets renders a bullet list.
func Bullets(f Format, items []string) string {
	var b strings.Builder
	for i, item := range items {
		if f == FormatMarkdown {
			b.WriteString("- ")
		} else {
			b.WriteString("  * ")
		}
		b.WriteString(item)
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// KeyValue renders one "name: value" line.
func KeyValue(f Format, key string, value any) string {
	return fmt.Sprintf("%s: %v", Emphasis(f, key), value)
}

// Table renders a table in the requested mode. rightAlign marks columns
// that hold numbers.
func Table(f Format, headers []string, rows [][]string, rightAlign []bool) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(rightAlign) && rightAlign[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	if f == FormatMarkdown {
		return tw.RenderMarkdown()
	}
	tw.SetStyle(table.StyleLight)
	return tw.Render()
}
