package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquivis/aquivis/internal/invitation/domain"
	"github.com/aquivis/aquivis/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) dialect() string {
	return r.db.Dialector.Name()
}

func (r *repository) LockPair(ctx context.Context, companyID snowflake.ID, email string) error {
	if r.dialect() != db.TypePostgres {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`, fmt.Sprintf("invitation:%d:%s", companyID, email)).
		Error
}

func (r *repository) InsertIfAbsent(ctx context.Context, inv *domain.Invitation) (bool, error) {
	// Postgres cannot infer parameter types in a table-less SELECT list.
	cols := []string{"?", "?", "?", "?", "?", "?", "?", "?"}
	from := ""
	switch r.dialect() {
	case db.TypePostgres:
		cols = []string{"?::bigint", "?::bigint", "?::text", "?::text", "?::text", "?::bigint", "?::timestamptz", "?::timestamptz"}
	case db.TypeMySQL:
		from = " FROM DUAL"
	}

	tx := r.db.WithContext(ctx).Exec(
		`INSERT INTO invitations (id, company_id, email, role, token, invited_by, created_at, expires_at)
		 SELECT `+strings.Join(cols, ", ")+from+`
		 WHERE NOT EXISTS (SELECT 1 FROM profiles WHERE email = ?)
		   AND NOT EXISTS (
		     SELECT 1 FROM invitations
		     WHERE company_id = ? AND email = ? AND accepted_at IS NULL AND expires_at > ?
		   )`,
		inv.ID,
		inv.CompanyID,
		inv.Email,
		string(inv.Role),
		inv.Token,
		inv.InvitedBy,
		inv.CreatedAt,
		inv.ExpiresAt,
		inv.Email,
		inv.CompanyID,
		inv.Email,
		inv.CreatedAt,
	)
	if tx.Error != nil {
		if db.IsDuplicateKeyErr(tx.Error) {
			return false, nil
		}
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("profiles").Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) ListPending(ctx context.Context, companyID snowflake.ID, now time.Time) ([]domain.Invitation, error) {
	var items []domain.Invitation
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND accepted_at IS NULL AND expires_at > ?", companyID, now).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MarkAccepted(ctx context.Context, id snowflake.ID, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE invitations SET accepted_at = ?
		 WHERE id = ? AND accepted_at IS NULL AND expires_at > ?`,
		at,
		id,
		at,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) LinkProfile(ctx context.Context, in domain.LinkProfile) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE profiles
		 SET company_id = ?, role = ?, created_by = ?, updated_by = ?, updated_at = ?
		 WHERE id = ? AND company_id IS NULL`,
		in.CompanyID,
		string(in.Role),
		in.InvitedBy,
		in.InvitedBy,
		in.At,
		in.UserID,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) DeletePending(ctx context.Context, id, companyID snowflake.ID) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(
		`DELETE FROM invitations WHERE id = ? AND company_id = ? AND accepted_at IS NULL`,
		id,
		companyID,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repository) CompanyName(ctx context.Context, companyID snowflake.ID) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Raw(`SELECT name FROM companies WHERE id = ?`, companyID).
		Scan(&names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}
