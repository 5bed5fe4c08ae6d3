package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// Archiver moves aged trades and signals into cold storage as JSONL
// objects. Records stay in the primary store after archiving; purging is a
// separate, explicit operation to be run once an archive is verified.
type Archiver struct {
	writer    domain.BlobWriter
	trades    domain.TradeStore
	signals   domain.SignalStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver that archives records older than
// retentionDays.
func NewArchiver(writer domain.BlobWriter, trades domain.TradeStore, signals domain.SignalStore, retentionDays int, logger *slog.Logger, now func() time.Time) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Archiver{
		writer:    writer,
		trades:    trades,
		signals:   signals,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger.With("component", "archiver"),
		now:       now,
	}
}

// Run archives on the given interval until the context is cancelled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("archive cycle failed", "error", err)
			}
		}
	}
}

// ArchiveOnce archives all trades and signals older than the retention
// window in one pass.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	cutoff := a.now().Add(-a.retention)

	tradeCount, err := a.archiveTrades(ctx, cutoff)
	if err != nil {
		return err
	}
	signalCount, err := a.archiveSignals(ctx, cutoff)
	if err != nil {
		return err
	}

	if tradeCount+signalCount > 0 {
		a.logger.Info("archived aged records",
			"trades", tradeCount,
			"signals", signalCount,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}

func (a *Archiver) archiveTrades(ctx context.Context, cutoff time.Time) (int, error) {
	trades, err := a.trades.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", cutoff)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}
	return len(trades), nil
}

func (a *Archiver) archiveSignals(ctx context.Context, cutoff time.Time) (int, error) {
	signals, err := a.signals.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive signals query: %w", err)
	}
	if len(signals) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(signals)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive signals marshal: %w", err)
	}

	path := archivePath("signals", cutoff)
	if err := a.writer.Put(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive signals upload: %w", err)
	}
	return len(signals), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-01.jsonl
//	archive/signals/2026-01.jsonl
func archivePath(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, cutoff.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
