package exporters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/reqprof/instrument"
)

// FileMetricsExporter writes metric snapshot records to a FileSink, one
// JSON object per line.
type FileMetricsExporter struct {
	sink *FileSink
}

// NewFileMetricsExporter creates the exporter and prepares its target file.
func NewFileMetricsExporter(path string) (*FileMetricsExporter, error) {
	sink, err := NewFileSink(path)
	if err != nil {
		return nil, err
	}
	return &FileMetricsExporter{sink: sink}, nil
}

// Path returns the target file path.
func (e *FileMetricsExporter) Path() string {
	return e.sink.Path()
}

// Export appends records in order. An empty batch writes nothing.
func (e *FileMetricsExporter) Export(ctx context.Context, records []instrument.Record) Result {
	if len(records) == 0 {
		return Succeeded()
	}
	lines := make([][]byte, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return Failure(fmt.Errorf("exporters: encode metric %q: %w", r.Name, err))
		}
		lines = append(lines, data)
	}
	return e.sink.Append(ctx, lines)
}

// Shutdown releases the exporter. It is idempotent.
func (e *FileMetricsExporter) Shutdown(ctx context.Context) error {
	return e.sink.Shutdown(ctx)
}
