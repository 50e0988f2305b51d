// Package export renders todos as json, csv or pdf.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Makepad-fr/tada/internal/model"
)

// Formats lists the supported formats.
var Formats = []string{"json", "csv", "pdf"}

var ErrUnknownFormat = errors.New("unknown export format")

// Export renders items in the given format. The json output has the same
// shape as the file store, so it can be used as a todos.json.
func Export(items []model.Item, format string) ([]byte, error) {
	if items == nil {
		items = []model.Item{}
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		out, err := json.MarshalIndent(struct {
			Todos []model.Item `json:"todos"`
		}{items}, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "csv":
		return exportCSV(items)
	case "pdf":
		return exportPDF(items)
	default:
		return nil, fmt.Errorf("%w %q (want %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
}

func exportCSV(items []model.Item) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"id", "date", "content", "done"})
	for _, it := range items {
		_ = w.Write([]string{it.ID, it.Date.UTC().Format(time.RFC3339Nano), it.Content, strconv.FormatBool(it.Done)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func exportPDF(items []model.Item) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Todos")
	pdf.Ln(12)

	done := 0
	for _, it := range items {
		if it.Done {
			done++
		}
	}
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("%d done, %d pending, %d total", done, len(items)-done, len(items)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	for _, it := range items {
		box := "[ ]"
		if it.Done {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s  (%s)", box, it.Content, it.Date.UTC().Format("2006-01-02 15:04"))
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
