package leadfile

import (
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// BOM is the UTF-8 byte order mark prefixed to exports so spreadsheet tools
// detect the encoding.
const BOM = "\uFEFF"

// Writer produces CSV with CRLF record separators and no trailing separator.
// Fields are quoted only when they contain a comma, quote, CR or LF; embedded
// newlines are written as-is.
type Writer struct {
	w       io.Writer
	records int
	err     error
}

// NewWriter returns a Writer that emits the BOM before the first record.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one record.
func (cw *Writer) Write(record []string) error {
	if cw.err != nil {
		return cw.err
	}
	var b strings.Builder
	if cw.records == 0 {
		b.WriteString(BOM)
	} else {
		b.WriteString("\r\n")
	}
	for i, field := range record {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EscapeCell(field))
	}
	if _, err := io.WriteString(cw.w, b.String()); err != nil {
		cw.err = eris.Wrap(err, "csv: write record")
		return cw.err
	}
	cw.records++
	return nil
}

// WriteAll emits every record.
func (cw *Writer) WriteAll(records [][]string) error {
	for _, r := range records {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// EscapeCell doubles quotes and wraps the value in quotes when it contains a
// comma, quote, CR or LF.
func EscapeCell(v string) string {
	if !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

var unsafeFilename = regexp.MustCompile(`(?i)[^a-z0-9_\-]`)

// Filename derives an export file name from a campaign title, for example
// "Q3 Pilot" and "leads" give "Q3_Pilot_leads.csv".
func Filename(title, suffix string) string {
	return unsafeFilename.ReplaceAllString(title, "_") + "_" + suffix + ".csv"
}
