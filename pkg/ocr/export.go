package ocr

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
)

// Download names and content types for exported files.
const (
	JSONFileName    = "extracted_text.json"
	JSONContentType = "application/json"
	CSVFileName     = "history.csv"
	CSVContentType  = "text/csv"
)

type textDocument struct {
	ExtractedText string `json:"extracted_text"`
}

// ToJSON renders text as {"extracted_text": text} indented by four spaces.
func ToJSON(text string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(textDocument{ExtractedText: text}); err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ToCSV renders a single-column "text" table of entries. Images are omitted.
func ToCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"text"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Text}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
