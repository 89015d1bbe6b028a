package domain

import (
	"context"
	"time"

	teamdomain "github.com/aquivis/aquivis/internal/team/domain"
	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Onboard creates a company and makes userID its first owner.
	Onboard(ctx context.Context, userID snowflake.ID, req OnboardRequest) (*CompanyResponse, error)
	Get(ctx context.Context, actor teamdomain.Membership) (*CompanyResponse, error)
	Update(ctx context.Context, actor teamdomain.Membership, req UpdateRequest) (*CompanyResponse, error)
}

type OnboardRequest struct {
	CompanyName string
	Timezone    string
}

// UpdateRequest replaces the editable company settings. Optional fields left
// nil or blank are cleared.
type UpdateRequest struct {
	Name                      string
	Timezone                  string
	BusinessAddress           *string
	BusinessAddressStreet     *string
	BusinessAddressCity       *string
	BusinessAddressState      *string
	BusinessAddressPostalCode *string
	BusinessAddressCountry    *string
	Phone                     *string
	Website                   *string
	TaxID                     *string
}

type CompanyResponse struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Slug                      string    `json:"slug"`
	Timezone                  string    `json:"timezone"`
	BusinessAddress           *string   `json:"business_address"`
	BusinessAddressStreet     *string   `json:"business_address_street"`
	BusinessAddressCity       *string   `json:"business_address_city"`
	BusinessAddressState      *string   `json:"business_address_state"`
	BusinessAddressPostalCode *string   `json:"business_address_postal_code"`
	BusinessAddressCountry    *string   `json:"business_address_country"`
	Phone                     *string   `json:"phone"`
	Website                   *string   `json:"website"`
	TaxID                     *string   `json:"tax_id"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}
