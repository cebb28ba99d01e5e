// Package normalizer converts the heterogeneous spreadsheets of one
// extracted report bundle into typed fact rows with consistent base units.
// Each known document type carries a strict filename pattern with a tolerant
// fallback matcher, its own header layout, and its own unit-scale factors;
// a date missing a document is normal, not an error.
package normalizer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"opspulse/pkg/contracts/domain"
)

// FactWriter is the slice of the fact-store contract the normalizer needs:
// one batched, natural-key upsert per fact type.
type FactWriter interface {
	UpsertDailyBusiness(ctx context.Context, rows []domain.DailyBusinessFact) error
	UpsertHourlyBusiness(ctx context.Context, rows []domain.HourlyBusinessFact) error
	UpsertCountryFlow(ctx context.Context, rows []domain.CountryFlowFact) error
	UpsertChannelRevenue(ctx context.Context, rows []domain.ChannelRevenueFact) error
	UpsertActiveUsers(ctx context.Context, rows []domain.ActiveUsersFact) error
	UpsertHourlyPerformance(ctx context.Context, rows []domain.HourlyPerformanceFact) error
}

// Normalizer matches extracted files to document types and runs their parsers.
type Normalizer struct {
	logger   *slog.Logger
	writer   FactWriter
	validate *validator.Validate
}

// NewNormalizer creates a normalizer writing through the given fact writer.
func NewNormalizer(logger *slog.Logger, writer FactWriter) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger:   logger,
		writer:   writer,
		validate: validator.New(),
	}
}

// Normalize reads all spreadsheet files in extractDir and writes fact rows
// for the given date. Per-document failures (missing sheet, unrecognizable
// layout, storage error) are logged and skipped so the remaining documents
// still produce partial data; only a failure to list the directory is fatal.
func (n *Normalizer) Normalize(ctx context.Context, extractDir string, date time.Time) error {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	for _, doc := range documentTypes {
		name, ok := doc.MatchFile(names, date)
		if !ok {
			n.logger.DebugContext(ctx, "document not present for date",
				slog.String("document", doc.ID),
				slog.String("date", date.Format(domain.DateFormat)))
			continue
		}

		count, err := n.parseDocument(ctx, doc, filepath.Join(extractDir, name), date)
		if err != nil {
			n.logger.WarnContext(ctx, "document skipped",
				slog.String("document", doc.ID),
				slog.String("file", name),
				slog.String("date", date.Format(domain.DateFormat)),
				slog.String("error", err.Error()))
			continue
		}

		n.logger.InfoContext(ctx, "document normalized",
			slog.String("document", doc.ID),
			slog.String("file", name),
			slog.String("date", date.Format(domain.DateFormat)),
			slog.Int("rows", count))
	}

	return nil
}

// parseDocument opens one workbook and routes it to the document's parser.
func (n *Normalizer) parseDocument(ctx context.Context, doc DocumentType, path string, date time.Time) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return doc.parse(ctx, n, f, date)
}

// logDroppedRow records a row that still contained unrecognized non-scalar
// values after cell coercion. Dropped rows are logged, never thrown.
func (n *Normalizer) logDroppedRow(ctx context.Context, docID string, row []string) {
	n.logger.WarnContext(ctx, "row dropped: unrecognized cell value",
		slog.String("document", docID),
		slog.Any("row", row))
}

// filterValid drops rows that fail struct validation before the batched
// upsert. This is the defensive last line behind cell coercion: anything that
// slipped through with an out-of-range or missing dimension value is logged
// and excluded rather than poisoning the batch.
func filterValid[T any](ctx context.Context, n *Normalizer, docID string, rows []T) []T {
	valid := rows[:0]
	for _, row := range rows {
		if err := n.validate.Struct(row); err != nil {
			n.logger.WarnContext(ctx, "row dropped: validation failed",
				slog.String("document", docID),
				slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, row)
	}
	return valid
}
