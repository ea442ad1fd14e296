package report

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/leadfile"
	"github.com/sells-group/interview-cli/internal/model"
)

const linkColumn = "interview_link"

// WriteResponsesCSV writes one row per response with the answers to
// Question 1..4, plus Question 5 when the campaign has an open question.
func WriteResponsesCSV(w io.Writer, c *model.Campaign, responses []Response) error {
	n := 4
	if c.HasOpenQuestion() {
		n = 5
	}
	header := make([]string, n)
	for i := range header {
		header[i] = "Question " + strconv.Itoa(i+1)
	}

	cw := leadfile.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write responses")
	}
	for _, r := range responses {
		if err := cw.Write(r.Answers.Slice()[:n]); err != nil {
			return eris.Wrap(err, "report: write responses")
		}
	}
	return nil
}

// WriteLeadsCSV writes the raw columns of every lead (sorted union of keys)
// followed by the interview link. An empty export is the link header alone.
func WriteLeadsCSV(w io.Writer, leads []model.Lead, publicURL string) error {
	if len(leads) == 0 {
		_, err := io.WriteString(w, leadfile.BOM+linkColumn+"\r\n")
		return eris.Wrap(err, "report: write leads")
	}

	records := make([]model.RawRecord, len(leads))
	for i := range leads {
		records[i] = leads[i].RawData
	}
	keys := model.UnionKeys(records)

	cw := leadfile.NewWriter(w)
	if err := cw.Write(append(append([]string{}, keys...), linkColumn)); err != nil {
		return eris.Wrap(err, "report: write leads")
	}
	for i := range leads {
		row := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			v, _ := leads[i].RawData.Get(k)
			row = append(row, model.FormatValue(v))
		}
		link := ""
		if tok := leads[i].Token(); tok != "" {
			link = InterviewURL(publicURL, tok)
		}
		row = append(row, link)
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write leads")
		}
	}
	return nil
}

// ResponsesFilename is the download name for a campaign's responses.
func ResponsesFilename(c *model.Campaign) string {
	return leadfile.Filename(c.Title, "responses")
}

// LeadsFilename is the download name for a campaign's leads.
func LeadsFilename(c *model.Campaign) string {
	return leadfile.Filename(c.Title, "leads")
}
