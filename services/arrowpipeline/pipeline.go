// Package arrowpipeline encodes bar series as Apache Arrow IPC streams
package arrowpipeline

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// Config holds Arrow pipeline configuration
type Config struct {
	BatchSize int `yaml:"batch_size"`
}

// Pipeline converts between engine series and Arrow record batches
type Pipeline struct {
	config     Config
	memoryPool memory.Allocator
	logger     *zap.Logger
}

var barSchema = arrow.NewSchema([]arrow.Field{
	{Name: "symbol", Type: arrow.BinaryTypes.String},
	{Name: "timestamp_ms", Type: arrow.PrimitiveTypes.Int64},
	{Name: "open", Type: arrow.PrimitiveTypes.Float64},
	{Name: "high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "close", Type: arrow.PrimitiveTypes.Float64},
}, nil)

func NewPipeline(config Config, logger *zap.Logger) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{config: config, memoryPool: memory.NewGoAllocator(), logger: logger}
}

func Schema() *arrow.Schema { return barSchema }

// WriteSeries streams every series to w, BatchSize rows per record batch
func (p *Pipeline) WriteSeries(w io.Writer, series []engine.Series) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(barSchema), ipc.WithAllocator(p.memoryPool))
	builder := array.NewRecordBuilder(p.memoryPool, barSchema)
	defer builder.Release()

	batches := 0
	flush := func() error {
		rec := builder.NewRecord()
		defer rec.Release()
		if rec.NumRows() == 0 {
			return nil
		}
		batches++
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write Arrow record: %w", err)
		}
		return nil
	}

	rows := 0
	for _, s := range series {
		for _, b := range s.Bars {
			builder.Field(0).(*array.StringBuilder).Append(s.Symbol)
			builder.Field(1).(*array.Int64Builder).Append(b.Timestamp.UnixMilli())
			builder.Field(2).(*array.Float64Builder).Append(b.Open)
			builder.Field(3).(*array.Float64Builder).Append(b.High)
			builder.Field(4).(*array.Float64Builder).Append(b.Low)
			builder.Field(5).(*array.Float64Builder).Append(b.Close)
			rows++
			if rows%p.config.BatchSize == 0 {
				if err := flush(); err != nil {
					writer.Close()
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	p.logger.Debug("wrote Arrow stream", zap.Int("rows", rows), zap.Int("batches", batches))
	return nil
}

// ConvertToArrow returns the IPC stream of series
func (p *Pipeline) ConvertToArrow(series []engine.Series) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteSeries(&buf, series); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadSeries decodes an IPC stream. Series come back in first-seen symbol
// order with bars in stream order.
func (p *Pipeline) ReadSeries(r io.Reader) ([]engine.Series, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(p.memoryPool))
	if err != nil {
		return nil, fmt.Errorf("failed to open Arrow stream: %w", err)
	}
	defer rdr.Release()
	if !rdr.Schema().Equal(barSchema) {
		return nil, fmt.Errorf("unexpected Arrow schema: %s", rdr.Schema())
	}

	index := map[string]int{}
	var out []engine.Series
	for rdr.Next() {
		rec := rdr.Record()
		symbols := rec.Column(0).(*array.String)
		ts := rec.Column(1).(*array.Int64)
		open := rec.Column(2).(*array.Float64)
		high := rec.Column(3).(*array.Float64)
		low := rec.Column(4).(*array.Float64)
		closes := rec.Column(5).(*array.Float64)
		for i := 0; i < int(rec.NumRows()); i++ {
			sym := symbols.Value(i)
			j, ok := index[sym]
			if !ok {
				j = len(out)
				index[sym] = j
				out = append(out, engine.Series{Symbol: sym})
			}
			out[j].Bars = append(out[j].Bars, engine.Bar{
				Timestamp: time.UnixMilli(ts.Value(i)).UTC(),
				Open:      open.Value(i),
				High:      high.Value(i),
				Low:       low.Value(i),
				Close:     closes.Value(i),
			})
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read Arrow stream: %w", err)
	}
	return out, nil
}

// ConvertFromArrow converts Arrow data back to series
func (p *Pipeline) ConvertFromArrow(data []byte) ([]engine.Series, error) {
	return p.ReadSeries(bytes.NewReader(data))
}
