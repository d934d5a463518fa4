package ui

import (
	"fmt"
	"strings"

	"flashdl/internal/media"
)

const mergeLabel = "merge"

// RenderMenu formats a resolution for a terminal: a title bar, the source
// and one numbered line per option.
func RenderMenu(res *media.Resolution) string {
	var b strings.Builder

	b.WriteString(Title(res.Title))
	b.WriteByte('\n')
	if res.SourceURL != "" {
		b.WriteString(Faint(res.SourceURL))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if res.Type == media.TypeImage {
		fmt.Fprintf(&b, "%s %s\n", Bold("image"), Faint(res.ImageURL))
		return b.String()
	}

	for i, opt := range res.Options {
		fmt.Fprintf(&b, "%s %s\n", Bold(fmt.Sprintf("%2d", i+1)), optionLine(opt))
	}
	return b.String()
}

func optionLine(opt media.Option) string {
	line := opt.Label + " " + Faint("."+opt.Ext)
	if opt.RequiresMerge {
		line += " " + mergeTag(mergeLabel)
	}
	return line
}

// plainLine is optionLine without styling, for fzf input.
func plainLine(opt media.Option) string {
	line := opt.Label + " (." + opt.Ext + ")"
	if opt.RequiresMerge {
		line += " [" + mergeLabel + "]"
	}
	return line
}
