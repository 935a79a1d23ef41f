// Package export maps unified contractor records back to the flat CSV schema
// for round-trip export, with filtering, differential export, and best-effort
// backup of prior artifacts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/normalize"
)

// Format selects the export artifact type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Options filters and shapes an export run.
type Options struct {
	OnlyEnhanced       bool       // keep records touched after unification
	MinCompletionScore int        // inclusive lower bound, 0 disables
	Since              *time.Time // differential: strictly after this instant
	Format             Format     // default FormatCSV
}

// Result reports the outcome of one export run. Failures surface here rather
// than aborting past the batch boundary.
type Result struct {
	Success    bool   `json:"success"`
	BatchID    string `json:"batch_id"`
	Path       string `json:"path"`
	Exported   int    `json:"exported"`
	Skipped    int    `json:"skipped"`
	BackupPath string `json:"backup_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Columns of the export artifact: the input schema columns first so the file
// round-trips through ingestion, then hub-owned columns.
var exportColumns = []string{
	normalize.ColBusinessID,
	normalize.ColCompanyName,
	normalize.ColCategory,
	normalize.ColPrimaryEmail,
	normalize.ColPhone,
	normalize.ColWebsite,
	normalize.ColAddressFull,
	normalize.ColCity,
	normalize.ColStateCode,
	normalize.ColPostalCode,
	normalize.ColGoogleRating,
	normalize.ColGoogleCount,
	normalize.ColBusinessHealth,
	normalize.ColPriority,
	normalize.ColTrustScore,
	normalize.ColSophScore,
	normalize.ColSophTier,
	normalize.ColEmailQual,
	normalize.ColPricing,
	normalize.ColAngle,
	normalize.ColConversion,
	normalize.ColCompletionScore,
	"campaign_status",
	"completion_tier",
	"score_change_last_update",
	"fields_enhanced_count",
	"hub_created_at",
	"hub_updated_at",
	"schema_version",
	"processing_timestamp",
}

// Engine writes export artifacts. The clock is injectable for tests.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an export engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: func() time.Time { return time.Now().UTC() }}
}

// Export filters records per opts and writes them to path. An existing file
// at path is archived to a timestamped backup first; backup failure logs a
// warning but never aborts the export.
func (e *Engine) Export(records []model.ContractorRecord, path string, opts Options) (Result, error) {
	res := Result{BatchID: uuid.New().String(), Path: path}

	kept := Filter(records, opts)
	res.Skipped = len(records) - len(kept)

	res.BackupPath = e.backupExisting(path)

	format := opts.Format
	if format == "" {
		format = FormatCSV
	}

	var err error
	switch format {
	case FormatCSV:
		err = e.writeCSV(kept, path)
	case FormatXLSX:
		err = e.writeXLSX(kept, path)
	default:
		err = eris.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	res.Success = true
	res.Exported = len(kept)

	zap.L().Info("export: complete",
		zap.String("batch_id", res.BatchID),
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("exported", res.Exported),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Filter applies the export options to a record set.
func Filter(records []model.ContractorRecord, opts Options) []model.ContractorRecord {
	var kept []model.ContractorRecord
	for i := range records {
		rec := &records[i]

		if opts.OnlyEnhanced && !rec.Enhanced() {
			continue
		}
		if opts.MinCompletionScore > 0 && rec.DataCompletionScore < opts.MinCompletionScore {
			continue
		}
		if opts.Since != nil {
			// Differential export keys off the modification time, falling
			// back to creation time for never-updated records.
			modified := rec.UpdatedAt
			if modified.IsZero() {
				modified = rec.CreatedAt
			}
			if !modified.After(*opts.Since) {
				continue
			}
		}
		kept = append(kept, *rec)
	}
	return kept
}

// backupExisting archives the previous export file, best-effort. Returns the
// backup path, or "" when there was nothing to archive or the copy failed.
func (e *Engine) backupExisting(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	backup := fmt.Sprintf("%s.%s.bak", path, e.now().Format("20060102T150405"))
	if err := copyFile(path, backup); err != nil {
		zap.L().Warn("export: backup of previous artifact failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}
	return backup
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "export: open source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrap(err, "export: create backup")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return eris.Wrap(err, "export: copy backup")
	}
	return nil
}

func (e *Engine) writeCSV(records []model.ContractorRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(exportColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	stamp := e.now().Format(time.RFC3339)
	for i := range records {
		if err := w.Write(BuildRow(&records[i], stamp)); err != nil {
			return eris.Wrapf(err, "export: write row %s", records[i].BusinessID)
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "export: flush")
}

// BuildRow maps one record back to the flat column layout, inverse of the
// CSV normalizer.
func BuildRow(rec *model.ContractorRecord, stamp string) []string {
	return []string{
		rec.BusinessID,
		rec.CompanyName,
		rec.Category,
		rec.PrimaryEmail,
		rec.Phone,
		rec.Website,
		rec.AddressFull,
		rec.City,
		rec.StateCode,
		rec.PostalCode,
		formatFloat(rec.GoogleRating),
		strconv.Itoa(rec.GoogleReviewsCount),
		string(rec.BusinessHealth),
		string(rec.OutreachPriority),
		formatFloat(rec.TrustScore),
		strconv.Itoa(rec.SophisticationScore),
		string(rec.SophisticationTier),
		string(rec.EmailQuality),
		rec.PricingPsychology,
		rec.PrimaryAngle,
		rec.ConversionProbability,
		strconv.Itoa(rec.DataCompletionScore),
		string(rec.CampaignStatus),
		string(rec.CompletionTier),
		strconv.Itoa(rec.LastScoreChange()),
		strconv.Itoa(len(rec.ScoreHistory)),
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		model.SchemaVersion,
		stamp,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
