package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/pkg/errors"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	// descriptionSheet documents the spreadsheet itself and carries no result rows.
	descriptionSheet = "Beskrivning"

	// examMarker is the Provnamn value for a regular exam occasion. Re-takes and
	// other assessment types carry different labels and are skipped.
	examMarker = "Tentamen"

	isoDate = "2006-01-02"
)

// The statistics document repeats one occasion across several rows, one per grade
// label. The Normalizer collapses them into a single ExamResult per (code, taken).
type Normalizer struct {
	log zerolog.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		log: logger.With("normalizer"),
	}
}

// Normalize parses the raw spreadsheet into exam results without attachments.
// Rows with unparseable dates or amounts are logged and skipped; sheets missing the
// consumed columns are skipped whole. Output order is not significant.
func (n *Normalizer) Normalize(data []byte) ([]model.ExamResult, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidDocument
	}

	entries := make(map[string]*model.ExamResult)
	order := make([]string, 0)

	for _, sheet := range sheets {
		if sheet == descriptionSheet {
			continue
		}

		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		n.normalizeSheet(sheet, rows, entries, &order)
	}

	results := make([]model.ExamResult, 0, len(order))
	for _, key := range order {
		results = append(results, *entries[key])
	}

	return results, nil
}

func (n *Normalizer) normalizeSheet(sheet string, rows [][]string, entries map[string]*model.ExamResult, order *[]string) {
	if len(rows) < 2 {
		return
	}

	columns := make(map[string]int)
	for i, col := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, name := range []string{"provnamn", "kurs", "kursnamn", "betyg", "antal", "provdatum"} {
		if _, ok := columns[name]; !ok {
			n.log.Warn().Str("sheet", sheet).Str("column", name).Msg("Sheet missing column, skipping")
			return
		}
	}

	for i, row := range rows[1:] {
		cell := func(name string) string {
			if idx := columns[name]; idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		// skip if not an exam occasion
		if cell("provnamn") != examMarker {
			continue
		}

		code := cell("kurs")
		name := cell("kursnamn")

		taken, err := parseDate(cell("provdatum"))
		if err != nil {
			n.log.Warn().Str("sheet", sheet).Int("row", i+2).Str("date", cell("provdatum")).
				Msg("Unparseable exam date, skipping row")
			continue
		}

		amount, err := strconv.Atoi(cell("antal"))
		if err != nil {
			n.log.Warn().Str("sheet", sheet).Int("row", i+2).Str("amount", cell("antal")).
				Msg("Unparseable result amount, skipping row")
			continue
		}

		// first row for an occasion establishes code, name and date; the rest
		// only contribute grade counts
		key := code + taken
		entry, ok := entries[key]
		if !ok {
			entry = &model.ExamResult{
				Code:  code,
				Name:  name,
				Taken: taken,
			}
			entries[key] = entry
			*order = append(*order, key)
		}

		switch cell("betyg") {
		case "U":
			entry.Failures = amount
		case "3":
			entry.Threes = amount
		case "4":
			entry.Fours = amount
		case "5":
			entry.Fives = amount
		}
	}
}

// parseDate accepts both native spreadsheet dates and the free-text formats that vary
// between sheets, normalizing everything to ISO form.
func parseDate(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("empty date")
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		return "", err
	}

	return t.Format(isoDate), nil
}
