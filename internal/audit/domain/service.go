package domain

import (
	"context"
	"errors"
	"time"

	"github.com/aquivis/aquivis/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type ListActivityRequest struct {
	CompanyID snowflake.ID
	Category  string
	Limit     int
	PageToken string
}

type ActivityUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Activity struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityName string         `json:"entity_name"`
	User       ActivityUser   `json:"user"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	Category   string         `json:"category"`
	Details    map[string]any `json:"details"`
}

type ListActivityResponse struct {
	pagination.PageInfo
	Activities []Activity `json:"activities"`
}

type Service interface {
	// Record writes entry through tx when non-nil so the audit row commits
	// or rolls back with the change it describes.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidLimit     = errors.New("invalid_limit")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")
)
