package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"orbsim/internal/model"
)

// Accepted timestamp layouts for the minute table. Layouts without an
// offset are interpreted in the reference zone.
var minuteLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var dailyLayouts = []string{
	"2006-01-02",
	"2006/01/02",
}

// decoded wraps a raw file reader so UTF-8 BOMs and UTF-16 inputs (with
// BOM) decode transparently to UTF-8.
func decoded(f *os.File) io.Reader {
	br := bufio.NewReader(f)
	head, _ := br.Peek(3)
	switch {
	case len(head) >= 2 && ((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF:
		br.Discard(3)
	}
	return br
}

// LoadMinuteBars reads the intraday bar table. Expected header:
// symbol,timestamp,open,high,low,close (extra columns ignored).
// Malformed rows fail fast; the simulation core assumes clean input.
func LoadMinuteBars(path string, loc *time.Location) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open minute csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(decoded(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read minute csv header: %w", err)
	}
	col, maxIdx, err := columnIndex(header, "symbol", "timestamp", "open", "high", "low", "close")
	if err != nil {
		return nil, fmt.Errorf("minute csv: %w", err)
	}

	var bars []model.Bar
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read minute csv: %w", err)
		}
		line++

		if len(rec) <= maxIdx {
			return nil, fmt.Errorf("minute csv line %d: expected at least %d fields, got %d", line, maxIdx+1, len(rec))
		}
		ts, err := parseTime(rec[col["timestamp"]], minuteLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("minute csv line %d: %w", line, err)
		}
		o, h, l, c, err := parsePrices(rec, col)
		if err != nil {
			return nil, fmt.Errorf("minute csv line %d: %w", line, err)
		}
		bars = append(bars, model.Bar{
			Symbol: rec[col["symbol"]],
			Time:   ts,
			Open:   o, High: h, Low: l, Close: c,
		})
	}
	return bars, nil
}

// LoadDailyBars reads the daily bar table. Expected header:
// symbol,date,open,high,low,close.
func LoadDailyBars(path string, loc *time.Location) ([]model.DailyBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open daily csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(decoded(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read daily csv header: %w", err)
	}
	col, maxIdx, err := columnIndex(header, "symbol", "date", "open", "high", "low", "close")
	if err != nil {
		return nil, fmt.Errorf("daily csv: %w", err)
	}

	var bars []model.DailyBar
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read daily csv: %w", err)
		}
		line++

		if len(rec) <= maxIdx {
			return nil, fmt.Errorf("daily csv line %d: expected at least %d fields, got %d", line, maxIdx+1, len(rec))
		}
		date, err := parseTime(rec[col["date"]], dailyLayouts, loc)
		if err != nil {
			return nil, fmt.Errorf("daily csv line %d: %w", line, err)
		}
		o, h, l, c, err := parsePrices(rec, col)
		if err != nil {
			return nil, fmt.Errorf("daily csv line %d: %w", line, err)
		}
		bars = append(bars, model.DailyBar{
			Symbol: rec[col["symbol"]],
			Date:   date,
			Open:   o, High: h, Low: l, Close: c,
		})
	}
	return bars, nil
}

// columnIndex maps header names to positions and reports the highest
// index a required column occupies, so row loops can reject records
// too short to hold every required field.
func columnIndex(header []string, required ...string) (map[string]int, int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	maxIdx := 0
	for _, name := range required {
		i, ok := col[name]
		if !ok {
			return nil, 0, fmt.Errorf("missing column %q", name)
		}
		if i > maxIdx {
			maxIdx = i
		}
	}
	return col, maxIdx, nil
}

func parseTime(s string, layouts []string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func parsePrices(rec []string, col map[string]int) (o, h, l, c float64, err error) {
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &o}, {"high", &h}, {"low", &l}, {"close", &c},
	} {
		v, perr := strconv.ParseFloat(rec[col[f.name]], 64)
		if perr != nil {
			return 0, 0, 0, 0, fmt.Errorf("non-numeric %s %q", f.name, rec[col[f.name]])
		}
		if v <= 0 {
			return 0, 0, 0, 0, fmt.Errorf("non-positive %s %v", f.name, v)
		}
		*f.dst = v
	}
	return o, h, l, c, nil
}
