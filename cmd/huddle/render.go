package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"huddle/internal/app"
	"huddle/internal/triage"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

var countPrinter = message.NewPrinter(language.English)

// renderTable draws rows under headers. Short rows are padded with blanks.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printOutcome writes the Markdown rendering of outcome, bolding the heading
// when out is a terminal.
func printOutcome(out io.Writer, outcome triage.Outcome) {
	rendered := app.RenderOutcome(outcome)
	if shouldColorize(out) {
		if heading, rest, ok := strings.Cut(rendered, "\n"); ok {
			rendered = text.Colors{text.Bold, text.FgCyan}.Sprint(heading) + "\n" + rest
		}
	}
	fmt.Fprint(out, rendered)
}
