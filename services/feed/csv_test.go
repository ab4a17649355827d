package feed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{
		"2024-03-04T14:30:00Z",
		"2024-03-04 14:30:00+00:00",
		"2024-03-04 09:30:00-05:00",
		"2024-03-04 14:30:00",
		"2024-03-04T14:30:00",
		"2024-03-04 14:30",
		"1709562600",
		"1709562600000",
	} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, t0, ts, in)
	}
	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	in := "Timestamp,Open,High,Low,Close,Volume\n" +
		"2024-03-04 14:30:00,1,2,0.5,1.5,100\n" +
		"2024-03-04 14:31:00,,,,,\n" +
		"2024-03-04 14:32:00,1.5,2.5,1,2,100\n"
	s, err := LoadCSV(strings.NewReader(in), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, t0, s.Bars[0].Timestamp)
	assert.Equal(t, 1.5, s.Bars[0].Close)
	assert.Equal(t, t0.Add(2*time.Minute), s.Bars[1].Timestamp)
}

func TestLoadCSVUTF16WithBOM(t *testing.T) {
	in := "timestamp,open,high,low,close\r\n2024-03-04T14:30:00Z,1,2,0.5,1.5\r\n"
	enc, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(in)
	require.NoError(t, err)

	s, err := LoadCSV(strings.NewReader(enc), "MSFT")
	require.NoError(t, err)
	require.Len(t, s.Bars, 1)
	assert.Equal(t, 1.5, s.Bars[0].Close)
}

func TestLoadCSVUTF8BOM(t *testing.T) {
	in := "\uFEFFtimestamp,open,high,low,close\n1709562600,1,2,0.5,1.5\n"
	s, err := LoadCSV(strings.NewReader(in), "MSFT")
	require.NoError(t, err)
	require.Len(t, s.Bars, 1)
	assert.Equal(t, t0, s.Bars[0].Timestamp)
}

func TestLoadCSVErrors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("open,high,low,close\n1,1,1,1\n"), "X")
	assert.ErrorContains(t, err, "no timestamp column")

	_, err = LoadCSV(strings.NewReader("timestamp,open,high,low\n"), "X")
	assert.ErrorContains(t, err, "missing close column")

	_, err = LoadCSV(strings.NewReader("timestamp,open,high,low,close\n2024-03-04 14:30:00,1,x,1,1\n"), "X")
	assert.ErrorContains(t, err, "line 2")
}

func TestWriteCSVRoundTripsThroughLoadDir(t *testing.T) {
	dir := t.TempDir()
	series := engine.Series{Symbol: "NVDA", Bars: []engine.Bar{
		{Timestamp: t0, Open: 10, High: 11, Low: 9.5, Close: 10.25},
		{Timestamp: t0.Add(time.Minute), Open: 10.25, High: 10.5, Low: 10, Close: 10.125},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, series))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("NVDA")), buf.Bytes(), 0o644))

	out, err := LoadDir(dir, []string{"NVDA"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, series, out[0])

	_, err = LoadDir(dir, []string{"TSLA"})
	assert.Error(t, err)
}
