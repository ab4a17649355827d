package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC 3339 style dates, naive dates (UTC) and
// Unix epochs in seconds or milliseconds
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LoadCSV reads a bar history with a header naming timestamp (or datetime /
// date / time), open, high, low and close. Other columns are ignored; rows
// with an empty price are skipped. UTF-8 and UTF-16 with BOM are accepted.
func LoadCSV(r io.Reader, symbol string) (engine.Series, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return engine.Series{}, fmt.Errorf("%s: read header: %w", symbol, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	tsCol := -1
	for _, name := range []string{"timestamp", "datetime", "date", "time", "timestamp_ms"} {
		if i, ok := cols[name]; ok {
			tsCol = i
			break
		}
	}
	if tsCol < 0 {
		return engine.Series{}, fmt.Errorf("%s: no timestamp column in %v", symbol, header)
	}
	var idx [4]int
	for k, name := range []string{"open", "high", "low", "close"} {
		i, ok := cols[name]
		if !ok {
			return engine.Series{}, fmt.Errorf("%s: missing %s column", symbol, name)
		}
		idx[k] = i
	}

	series := engine.Series{Symbol: symbol}
	line := 1
	for {
		rec, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return engine.Series{}, fmt.Errorf("%s line %d: %w", symbol, line, err)
		}
		if blankPrice(rec, idx) {
			continue
		}
		ts, err := ParseTimestamp(field(rec, tsCol))
		if err != nil {
			return engine.Series{}, fmt.Errorf("%s line %d: %w", symbol, line, err)
		}
		var v [4]float64
		for k, i := range idx {
			if v[k], err = strconv.ParseFloat(strings.TrimSpace(field(rec, i)), 64); err != nil {
				return engine.Series{}, fmt.Errorf("%s line %d: %w", symbol, line, err)
			}
		}
		series.Bars = append(series.Bars, engine.Bar{Timestamp: ts, Open: v[0], High: v[1], Low: v[2], Close: v[3]})
	}
	return series, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func blankPrice(rec []string, idx [4]int) bool {
	for _, i := range idx {
		if strings.TrimSpace(field(rec, i)) == "" {
			return true
		}
	}
	return false
}

// FileName is the history file of one symbol inside a data directory
func FileName(symbol string) string { return "minute_" + symbol + ".csv" }

func LoadFile(path, symbol string) (engine.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.Series{}, err
	}
	defer f.Close()
	return LoadCSV(f, symbol)
}

// LoadDir loads minute_<symbol>.csv for every symbol
func LoadDir(dir string, symbols []string) ([]engine.Series, error) {
	out := make([]engine.Series, 0, len(symbols))
	for _, sym := range symbols {
		s, err := LoadFile(filepath.Join(dir, FileName(sym)), sym)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteCSV writes a series in the layout LoadCSV reads
func WriteCSV(w io.Writer, s engine.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "open", "high", "low", "close"}); err != nil {
		return err
	}
	for _, b := range s.Bars {
		if err := cw.Write([]string{
			b.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
