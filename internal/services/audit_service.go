package services

import (
	"context"
	"time"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/utils"
)

// AuditListLimit caps the admin log listing.
const AuditListLimit = 500

type AuditStore interface {
	AddAudit(ctx context.Context, e models.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

type AuditService struct {
	store AuditStore
	now   func() time.Time
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends an audit entry. Failures are logged and never returned, so
// an unwritable audit trail cannot fail the action being audited.
func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	if s == nil || s.store == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	if e.Status == "" {
		e.Status = "success"
	}
	entry := models.AuditEntry{
		ActionType: e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Details:    e.Details,
		Status:     e.Status,
		CreatedAt:  e.Time,
	}
	if e.ActorID > 0 {
		actor := e.ActorID
		entry.AdminUserID = &actor
	}
	if err := s.store.AddAudit(context.WithoutCancel(ctx), entry); err != nil {
		utils.Warn("audit write failed",
			utils.String("action", e.Action),
			utils.String("target_id", e.TargetID),
			utils.ErrorField(err),
		)
	}
}

func (s *AuditService) List(ctx context.Context) ([]models.AuditEntry, error) {
	return s.store.ListAudit(ctx, AuditListLimit)
}

// Export renders the full audit trail as CSV.
func (s *AuditService) Export(ctx context.Context, actorID int64) (*ExportResult, error) {
	entries, err := s.store.ListAudit(ctx, 0)
	if err != nil {
		return nil, err
	}
	data, err := ExportAuditCSV(entries)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.Record(ctx, AuditEntry{Time: now, ActorID: actorID, Action: ActionLogsExport, TargetType: "audit_logs", Details: itoa(len(entries)) + " entries exported"})
	return &ExportResult{Filename: exportFilename("audit_logs_export", now), ContentType: csvContentType, Data: data}, nil
}
