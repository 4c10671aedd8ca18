package lexicon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abhisek/eikengen/internal/eiken"
	"github.com/abhisek/eikengen/internal/store"
)

// ReadCSV parses a word list with the header "lemma,level,zipf[,pos]".
// Columns are located by header name, so extra columns are ignored.
func ReadCSV(r io.Reader) ([]store.LexiconEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"lemma", "level", "zipf"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}
	posCol, hasPOS := col["pos"]

	var out []store.LexiconEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		lemma := strings.ToLower(field(col["lemma"]))
		if lemma == "" {
			continue
		}
		level, err := eiken.ParseLevel(field(col["level"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		zipf, err := strconv.ParseFloat(field(col["zipf"]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse zipf: %w", line, err)
		}
		e := store.LexiconEntry{Lemma: lemma, Level: level, Zipf: zipf}
		if hasPOS {
			e.POS = field(posCol)
		}
		out = append(out, e)
	}
	return out, nil
}
