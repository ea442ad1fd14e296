package leadfile

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/model"
)

var (
	// ErrEmpty is returned when an upload has no data rows.
	ErrEmpty = eris.New("The file is empty or has no valid rows.")
	// ErrUnsupported is returned for uploads that are neither .csv nor .xlsx.
	ErrUnsupported = eris.New("Please upload a .csv or .xlsx file.")
)

// Sheet is a parsed upload: one header row plus data rows.
type Sheet struct {
	Header []string
	Rows   [][]string
}

func newSheet(header []string, rows [][]string) *Sheet {
	s := &Sheet{Header: uniqueHeader(header)}
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Records converts the data rows into raw records keyed by header, in
// column order. Cells past the header are dropped.
func (s *Sheet) Records() []model.RawRecord {
	out := make([]model.RawRecord, 0, len(s.Rows))
	for _, row := range s.Rows {
		out = append(out, model.NewRawRecord(s.Header, row))
	}
	return out
}

// Read parses an upload, choosing the format from the file name.
func Read(ctx context.Context, filename string, r io.Reader) ([]model.RawRecord, error) {
	var (
		sheet *Sheet
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		sheet, err = ReadCSV(ctx, r)
	case ".xlsx":
		var data []byte
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "leadfile: read upload")
		}
		sheet, err = ReadXLSX(data)
	default:
		return nil, eris.Wrapf(ErrUnsupported, "leadfile: %s", filename)
	}
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrEmpty
	}
	return sheet.Records(), nil
}

// uniqueHeader names blank columns by position and suffixes repeated names
// so that no cell is silently overwritten.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = h + "_" + strconv.Itoa(n)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
