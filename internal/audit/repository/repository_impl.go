package repository

import (
	"context"

	"github.com/aquivis/aquivis/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, company_id, actor_type, actor_id, action, target_type, target_id,
			metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CompanyID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ActivityRow, error) {
	var rows []*domain.ActivityRow
	stmt := db.WithContext(ctx).
		Table("audit_logs AS a").
		Select(`a.id, a.company_id, a.actor_type, a.actor_id, a.action, a.target_type, a.target_id,
			a.metadata, a.created_at,
			p.email AS actor_email, p.first_name AS actor_first_name, p.last_name AS actor_last_name`).
		Joins("LEFT JOIN profiles p ON p.id = a.actor_id").
		Where("a.company_id = ?", filter.CompanyID)

	if filter.Category != "" {
		stmt = stmt.Where("a.action LIKE ?", filter.Category+".%")
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("((a.created_at < ?) OR (a.created_at = ? AND a.id < ?))",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("a.created_at desc, a.id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
