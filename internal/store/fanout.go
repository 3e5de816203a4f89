package store

import (
	"context"
	"log/slog"
)

// Fanout is a RecordStore that writes to a primary store and mirrors every
// record to secondary exporters. Exporter failures are logged, never returned.
type Fanout struct {
	primary   RecordStore
	exporters []Appender
	logger    *slog.Logger
}

// NewFanout wraps primary. A nil logger falls back to slog.Default().
func NewFanout(primary RecordStore, logger *slog.Logger, exporters ...Appender) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{primary: primary, exporters: exporters, logger: logger}
}

func (f *Fanout) Append(ctx context.Context, rec Record) error {
	if err := f.primary.Append(ctx, rec); err != nil {
		return err
	}
	for _, e := range f.exporters {
		if err := e.Append(ctx, rec); err != nil {
			f.logger.Warn("record export failed", "id", rec.ID, "error", err)
		}
	}
	return nil
}

func (f *Fanout) Recent(ctx context.Context, limit int) ([]Record, error) {
	return f.primary.Recent(ctx, limit)
}
