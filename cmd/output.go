package cmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/ocrweb/pkg/ocr"
	"github.com/olekukonko/tablewriter"
)

func printExtraction(w io.Writer, result ocr.ExtractionResult, keyword string) {
	fmt.Fprintln(w, result.Text)
	fmt.Fprintf(w, "\nNumber of words: %d\n", result.WordCount)

	if keyword == "" {
		return
	}
	outcome := ocr.Search(result.Text, keyword)
	if !outcome.Found {
		fmt.Fprintf(w, "\nKeyword \"%s\" not found in the extracted text.\n", keyword)
		return
	}
	fmt.Fprintf(w, "\nKeyword \"%s\" found in the extracted text!\n\n%s\n", keyword, outcome.Rendered)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
