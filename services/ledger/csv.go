package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// CSV appends one row per trade, writing the header only to an empty file
type CSV struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

func OpenCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	l, err := NewCSV(f, info.Size() == 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.closer = f
	return l, nil
}

func NewCSV(w io.Writer, header bool) (*CSV, error) {
	l := &CSV{w: csv.NewWriter(w)}
	if header {
		if err := l.w.Write(Columns); err != nil {
			return nil, err
		}
		l.w.Flush()
		if err := l.w.Error(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *CSV) Append(_ context.Context, t engine.ClosedTrade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Write(row(t)); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *CSV) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
