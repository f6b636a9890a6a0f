package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/awap/internal/ingest"
	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/progress"
	"github.com/soaringjerry/awap/internal/utils"
)

const (
	DefaultImportBatchSize = 500
	importListLimit        = 100
)

type ImportStore interface {
	CreateImport(ctx context.Context, rec *models.ImportRecord) error
	UpdateImport(ctx context.Context, rec *models.ImportRecord) error
	GetImport(ctx context.Context, id string) (*models.ImportRecord, error)
	ListImports(ctx context.Context, limit int) ([]models.ImportRecord, error)
	InsertRespondents(ctx context.Context, batch []models.Respondent) (int, error)
}

// ProgressPublisher receives a snapshot after every processed batch.
type ProgressPublisher interface {
	Publish(ev progress.Event)
}

// ImportService loads survey files into survey_respondents. Uploads are
// processed in the background; Wait blocks until all of them finish.
type ImportService struct {
	store      ImportStore
	audit      *AuditService
	publisher  ProgressPublisher
	onComplete func(ctx context.Context)
	maxBytes   int64
	batchSize  int

	now      func() time.Time
	newID    func() string
	dispatch func(fn func())
	wg       sync.WaitGroup
}

type ImportOptions struct {
	MaxBytes  int64
	BatchSize int
	// OnComplete runs after every import that inserted rows.
	OnComplete func(ctx context.Context)
}

func NewImportService(store ImportStore, audit *AuditService, publisher ProgressPublisher, opts ImportOptions) *ImportService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultImportBatchSize
	}
	return &ImportService{
		store:      store,
		audit:      audit,
		publisher:  publisher,
		onComplete: opts.OnComplete,
		maxBytes:   opts.MaxBytes,
		batchSize:  opts.BatchSize,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		dispatch:   func(fn func()) { go fn() },
	}
}

// Submit validates and registers an upload, then processes it in the
// background. The returned record is the pending snapshot.
func (s *ImportService) Submit(ctx context.Context, actorID int64, filename string, data []byte) (*models.ImportRecord, error) {
	rec, err := s.prepare(ctx, actorID, filename, data)
	if err != nil {
		return nil, err
	}
	snapshot := *rec
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	s.dispatch(func() {
		defer s.wg.Done()
		if err := s.Run(bg, rec, data); err != nil {
			utils.Warn("import failed", utils.String("import_id", rec.ID), utils.ErrorField(err))
		}
	})
	return &snapshot, nil
}

// ImportFile runs the whole pipeline synchronously and returns the final
// record.
func (s *ImportService) ImportFile(ctx context.Context, actorID int64, filename string, data []byte) (*models.ImportRecord, error) {
	rec, err := s.prepare(ctx, actorID, filename, data)
	if err != nil {
		return nil, err
	}
	err = s.Run(ctx, rec, data)
	return rec, err
}

func (s *ImportService) prepare(ctx context.Context, actorID int64, filename string, data []byte) (*models.ImportRecord, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, NewInvalidError("No file uploaded")
	}
	if !ingest.SupportedExtension(filename) {
		return nil, WithDetails(NewInvalidError("Unsupported file type"), "Accepted formats: .csv, .xlsx, .xls")
	}
	if len(data) == 0 {
		return nil, NewInvalidError("File is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, WithDetails(NewTooLargeError("File too large"), fmt.Sprintf("Maximum upload size is %d MB", s.maxBytes>>20))
	}
	rec := &models.ImportRecord{
		ID:        s.newID(),
		FileName:  filename,
		Status:    models.ImportPending,
		CreatedAt: s.now(),
	}
	if actorID > 0 {
		uploader := actorID
		rec.UploaderID = &uploader
	}
	if err := s.store.CreateImport(ctx, rec); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     ActionDataImport,
		TargetType: "import",
		TargetID:   rec.ID,
		Details:    "Uploaded " + filename,
		Status:     "success",
	})
	return rec, nil
}

// Run parses data and inserts it batch by batch, updating rec and
// publishing progress as it goes. Parse or store failures mark the import
// failed; individual bad rows only count as failed rows.
func (s *ImportService) Run(ctx context.Context, rec *models.ImportRecord, data []byte) error {
	start := time.Now()
	rec.Status = models.ImportProcessing
	s.save(ctx, rec)
	s.publish(rec, 0, "")

	tbl, err := ingest.Read(rec.FileName, data)
	if err != nil {
		return s.fail(ctx, rec, err)
	}
	res := ingest.Convert(tbl, idPrefix(rec.ID))
	rec.TotalRows = len(tbl.Rows)
	rec.FailedRows = len(res.Failed)
	processed := rec.FailedRows

	for i := 0; i < len(res.Respondents); i += s.batchSize {
		end := min(i+s.batchSize, len(res.Respondents))
		batch := res.Respondents[i:end]
		n, err := s.store.InsertRespondents(ctx, batch)
		if err != nil {
			return s.fail(ctx, rec, err)
		}
		rec.InsertedRows += n
		rec.SkippedRows += len(batch) - n
		processed += len(batch)
		s.save(ctx, rec)
		s.publish(rec, processed, "")
	}

	done := s.now()
	rec.Status = models.ImportCompleted
	rec.CompletedAt = &done
	s.save(ctx, rec)
	if rec.InsertedRows > 0 && s.onComplete != nil {
		s.onComplete(ctx)
	}
	s.publish(rec, processed, "")
	utils.Info("import completed",
		utils.String("import_id", rec.ID),
		utils.Int("total", rec.TotalRows),
		utils.Int("inserted", rec.InsertedRows),
		utils.Int("skipped", rec.SkippedRows),
		utils.Int("failed", rec.FailedRows),
		utils.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *ImportService) fail(ctx context.Context, rec *models.ImportRecord, cause error) error {
	done := s.now()
	rec.Status = models.ImportFailed
	rec.ErrorMessage = cause.Error()
	rec.CompletedAt = &done
	s.save(ctx, rec)
	if rec.InsertedRows > 0 && s.onComplete != nil {
		s.onComplete(ctx)
	}
	s.publish(rec, rec.InsertedRows+rec.SkippedRows+rec.FailedRows, rec.ErrorMessage)
	return fmt.Errorf("import %s: %w", rec.ID, cause)
}

func (s *ImportService) save(ctx context.Context, rec *models.ImportRecord) {
	if err := s.store.UpdateImport(context.WithoutCancel(ctx), rec); err != nil {
		utils.Warn("import status update failed", utils.String("import_id", rec.ID), utils.ErrorField(err))
	}
}

func (s *ImportService) publish(rec *models.ImportRecord, processed int, msg string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ProgressEvent(rec, processed, msg))
}

// ProgressEvent describes rec as a progress update.
func ProgressEvent(rec *models.ImportRecord, processed int, msg string) progress.Event {
	return progress.Event{
		ImportID:     rec.ID,
		Status:       rec.Status,
		TotalRows:    rec.TotalRows,
		Processed:    processed,
		InsertedRows: rec.InsertedRows,
		SkippedRows:  rec.SkippedRows,
		FailedRows:   rec.FailedRows,
		Message:      msg,
		Done:         rec.Done(),
	}
}

func (s *ImportService) Get(ctx context.Context, id string) (*models.ImportRecord, error) {
	rec, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewNotFoundError("Import not found")
	}
	return rec, nil
}

func (s *ImportService) List(ctx context.Context) ([]models.ImportRecord, error) {
	return s.store.ListImports(ctx, importListLimit)
}

// Wait blocks until background imports finish or ctx is done.
func (s *ImportService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func idPrefix(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
