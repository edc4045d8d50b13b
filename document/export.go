package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"willdraft-go/models"
)

var (
	ErrExportNotFound = errors.New("export not found")

	unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ExportResult is a stored PDF plus where to fetch it.
type ExportResult struct {
	Export models.DocumentExport `json:"export"`
	URL    string                `json:"url"`
	// Clipped is set when the document did not fit on the single page.
	Clipped bool `json:"clipped"`
}

type Exporter struct {
	db    *gorm.DB
	store ObjectStore
	pdf   PDFWriter
	log   *zap.Logger
}

func NewExporter(db *gorm.DB, store ObjectStore, pdf PDFWriter, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{db: db, store: store, pdf: pdf, log: log}
}

// DownloadPath is served for backends without their own URLs.
func DownloadPath(exportID string) string {
	return "/api/exports/" + exportID + "/download"
}

// Export writes doc as a PDF named filename to the object store and records
// it for the user.
func (e *Exporter) Export(ctx context.Context, userID, willID string, doc Document, filename string) (*ExportResult, error) {
	body, stats, err := e.pdf.Bytes(doc)
	if err != nil {
		return nil, err
	}
	if stats.Clipped() {
		e.log.Warn("document clipped to one page",
			zap.String("will_id", willID), zap.Int("dropped_lines", stats.Dropped))
	}

	rec := models.DocumentExport{
		ID:        uuid.NewString(),
		UserID:    userID,
		WillID:    willID,
		Filename:  SanitizeFilename(filename),
		Backend:   e.store.Backend(),
		SizeBytes: int64(len(body)),
	}
	rec.StorageKey = path.Join("wills", userID, rec.ID, rec.Filename)

	if err := e.store.Put(ctx, rec.StorageKey, body, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	if err := e.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("record export: %w", err)
	}

	url, err := e.store.URL(ctx, rec.StorageKey)
	if err != nil {
		return nil, err
	}
	if url == "" {
		url = DownloadPath(rec.ID)
	}

	e.log.Info("will exported",
		zap.String("user_id", userID), zap.String("will_id", willID),
		zap.String("export_id", rec.ID), zap.String("backend", rec.Backend))

	return &ExportResult{Export: rec, URL: url, Clipped: stats.Clipped()}, nil
}

// Open returns the stored PDF of an export owned by userID.
func (e *Exporter) Open(ctx context.Context, userID, exportID string) (models.DocumentExport, io.ReadCloser, error) {
	var rec models.DocumentExport
	err := e.db.WithContext(ctx).Where("id = ? AND user_id = ?", exportID, userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, nil, ErrExportNotFound
	}
	if err != nil {
		return rec, nil, err
	}
	body, err := e.store.Open(ctx, rec.StorageKey)
	if err != nil {
		return rec, nil, err
	}
	return rec, body, nil
}

// SanitizeFilename keeps a safe base name ending in .pdf.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Trim(unsafeFilename.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = "will"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
