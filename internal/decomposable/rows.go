// Package decomposable holds the training rows of the auxiliary
// utterance/decision classifier and the minibatch trainer that feeds them to
// the model service.
package decomposable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/strongsup/go-decoder/internal/parse"
)

// #region types
// Row is one (utterance, decision sequence, label) training example.
// Utterance carries a trailing space and Decisions a leading one, which is
// how the decoder has always written them.
type Row struct {
	Utterance string `json:"utterance"`
	Decisions string `json:"decisions"`
	Label     int    `json:"label"`
}

// Batch is the output of one decomposable assembly pass.
type Batch struct {
	Rows []Row
	// Correct lists, per example, the indices of the correct paths in its beam.
	Correct [][]int
}

// #endregion types

// #region assemble
// Assemble builds one row per path of every non-empty beam. beams and
// examples are parallel.
func Assemble(beams []*parse.Beam, examples []*parse.Example) Batch {
	b := Batch{Correct: make([][]int, len(examples))}
	for i, ex := range examples {
		if i >= len(beams) || beams[i].Len() == 0 {
			continue
		}
		paths := beams[i].Paths()
		utterance := sentence(paths[0].Context())
		for j, p := range paths {
			label := 0
			if p.Correct(ex.Answer) {
				label = 1
				b.Correct[i] = append(b.Correct[i], j)
			}
			var decisions strings.Builder
			for _, name := range p.DecisionNames() {
				decisions.WriteString(" ")
				decisions.WriteString(name)
			}
			b.Rows = append(b.Rows, Row{Utterance: utterance, Decisions: decisions.String(), Label: label})
		}
	}
	return b
}

// CorrectCount is the number of rows labelled 1.
func (b Batch) CorrectCount() int {
	n := 0
	for _, idx := range b.Correct {
		n += len(idx)
	}
	return n
}

func sentence(ctx *parse.Context) string {
	var sb strings.Builder
	for _, tok := range ctx.Tokens() {
		sb.WriteString(tok)
		sb.WriteString(" ")
	}
	return sb.String()
}

// #endregion assemble

// #region csv
// ReadCSV parses a three-column file. The first record is returned like any
// other; callers that treat it as a header skip it themselves.
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return DecodeCSV(f)
}

// ErrBadLabel is returned for a data row whose label is not 0 or 1.
var ErrBadLabel = errors.New("label must be 0 or 1")

// DecodeCSV reads rows from r. A label other than 0 or 1 is an error
// unless it is on the first record, which may be a header.
func DecodeCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		label, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if i > 0 && (err != nil || !validLabel(label)) {
			return nil, fmt.Errorf("csv line %d: %w, got %q", i+1, ErrBadLabel, rec[2])
		}
		rows = append(rows, Row{Utterance: rec[0], Decisions: rec[1], Label: label})
	}
	return rows, nil
}

// WriteCSV writes a header line followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"utterance", "decisions", "label"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Utterance, r.Decisions, strconv.Itoa(r.Label)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func validLabel(label int) bool { return label == 0 || label == 1 }

// #endregion csv
