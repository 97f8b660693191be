package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/models"
)

// Audit action names recorded by the authentication flows.
const (
	AuditActionLogin           = "auth.login"
	AuditActionLockout         = "auth.lockout"
	AuditActionUnlock          = "auth.unlock"
	AuditActionTwoFactorEnroll = "auth.2fa.enroll"
	AuditActionTwoFactorVerify = "auth.2fa.verify"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	AdminID   *string
	Email     string
	Action    string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	AdminID  string
	Action   string
	Since    *time.Time
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores an audit entry, marshalling metadata into JSON form. Audit
// failures are reported but must not abort the calling flow.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if ctx == nil {
		ctx = context.Background()
	}

	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return errors.New("audit service: action is required")
	}

	record := models.AuditLog{
		AdminID:   entry.AdminID,
		Email:     strings.ToLower(strings.TrimSpace(entry.Email)),
		Action:    action,
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
	}

	if len(entry.Metadata) > 0 {
		payload, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		record.Metadata = payload
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit service: persist entry: %w", err)
	}

	return nil
}

// List returns a page of audit entries, newest first.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if opts.AdminID != "" {
		query = query.Where("admin_id = ?", opts.AdminID)
	}
	if opts.Action != "" {
		query = query.Where("action = ?", opts.Action)
	}
	if opts.Since != nil {
		query = query.Where("created_at >= ?", *opts.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count entries: %w", err)
	}

	var entries []models.AuditLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list entries: %w", err)
	}

	return entries, total, nil
}

// DeleteOlderThan prunes audit entries created before the cutoff and returns
// the number of rows removed.
func (s *AuditService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: prune entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
