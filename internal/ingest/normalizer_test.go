package ingest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildDocument assembles an in-memory spreadsheet in the shape of the statistics
// document: one sheet per term plus the description sheet.
func buildDocument(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", "Beskrivning"); err != nil {
		t.Fatalf("failed to rename sheet: %v", err)
	}
	if err := file.SetSheetRow("Beskrivning", "A1", &[]interface{}{"Detta dokument beskriver tentamensstatistik"}); err != nil {
		t.Fatalf("failed to write description: %v", err)
	}

	for name, rows := range sheets {
		if _, err := file.NewSheet(name); err != nil {
			t.Fatalf("failed to create sheet %q: %v", name, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("failed to build cell name: %v", err)
			}
			if err := file.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("failed to write row %d: %v", i, err)
			}
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize document: %v", err)
	}

	return buf.Bytes()
}

var header = []interface{}{"Kurs", "Kursnamn", "Provnamn", "Betyg", "Antal", "Provdatum"}

func TestNormalizeGroupsOccasionRows(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 1998_1999": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 300, "1998-12-26"},
			{"EDA322", "Digital konstruktion", "Tentamen", "3", 200, "1998-12-26"},
			{"EDA322", "Digital konstruktion", "Tentamen", "4", 100, "1998-12-26"},
			{"EDA322", "Digital konstruktion", "Tentamen", "5", 10, "1998-12-26"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Code != "EDA322" || r.Name != "Digital konstruktion" || r.Taken != "1998-12-26" {
		t.Errorf("unexpected identity: %+v", r)
	}
	if r.Failures != 300 || r.Threes != 200 || r.Fours != 100 || r.Fives != 10 {
		t.Errorf("unexpected grade counts: %+v", r)
	}
}

func TestNormalizeSeparatesOccasions(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 1998_1999": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 300, "1998-12-26"},
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 20, "1999-04-10"},
			{"TDA341", "Advanced functional programming", "Tentamen", "5", 7, "1998-12-26"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestNormalizeSkipsNonExamRows(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 2017_2018": {
			header,
			{"EDA322", "Digital konstruktion", "Omtentamen", "U", 50, "2018-01-03"},
			{"EDA322", "Digital konstruktion", "Laboration", "3", 12, "2018-01-03"},
			{"EDA322", "Digital konstruktion", "Tentamen", "3", 40, "2018-03-15"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Taken != "2018-03-15" || results[0].Threes != 40 {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestNormalizeIgnoresUnknownGradeLabels(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 2017_2018": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "G", 99, "2018-03-15"},
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 40, "2018-03-15"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Failures != 40 || r.Threes != 0 || r.Fours != 0 || r.Fives != 0 {
		t.Errorf("unknown label leaked into counts: %+v", r)
	}
}

func TestNormalizeSkipsUnparseableDates(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 2017_2018": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 40, "not a date"},
			{"TDA341", "Advanced functional programming", "Tentamen", "5", 7, "2018-03-15"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Code != "TDA341" {
		t.Errorf("wrong survivor: %+v", results[0])
	}
}

func TestNormalizeAcceptsFreeTextDates(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 2010_2011": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 40, "26 Dec 2010"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Taken != "2010-12-26" {
		t.Errorf("expected ISO date 2010-12-26, got %s", results[0].Taken)
	}
}

func TestNormalizeExcludesDescriptionSheet(t *testing.T) {
	// only the description sheet is present, so nothing should come out
	data := buildDocument(t, map[string][][]interface{}{})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestNormalizeSkipsSheetMissingColumns(t *testing.T) {
	data := buildDocument(t, map[string][][]interface{}{
		"läsår 2005_2006": {
			{"Kurs", "Kursnamn"},
			{"EDA322", "Digital konstruktion"},
		},
		"läsår 2017_2018": {
			header,
			{"EDA322", "Digital konstruktion", "Tentamen", "U", 40, "2018-03-15"},
		},
	})

	results, err := NewNormalizer().Normalize(data)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
