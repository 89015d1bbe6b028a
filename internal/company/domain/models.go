// Package domain contains the company (tenant) types.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company is the tenant every profile, invitation and audit row belongs to.
type Company struct {
	ID                        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name                      string        `gorm:"type:text;not null" json:"name"`
	Slug                      string        `gorm:"type:text;not null;uniqueIndex:ux_companies_slug" json:"slug"`
	Timezone                  string        `gorm:"type:text;not null;default:'UTC'" json:"timezone"`
	BusinessAddress           *string       `gorm:"column:business_address;type:text" json:"business_address"`
	BusinessAddressStreet     *string       `gorm:"column:business_address_street;type:text" json:"business_address_street"`
	BusinessAddressCity       *string       `gorm:"column:business_address_city;type:text" json:"business_address_city"`
	BusinessAddressState      *string       `gorm:"column:business_address_state;type:text" json:"business_address_state"`
	BusinessAddressPostalCode *string       `gorm:"column:business_address_postal_code;type:text" json:"business_address_postal_code"`
	BusinessAddressCountry    *string       `gorm:"column:business_address_country;type:text" json:"business_address_country"`
	Phone                     *string       `gorm:"column:phone;type:text" json:"phone"`
	Website                   *string       `gorm:"column:website;type:text" json:"website"`
	TaxID                     *string       `gorm:"column:tax_id;type:text" json:"tax_id"`
	CreatedBy                 *snowflake.ID `gorm:"column:created_by" json:"created_by"`
	UpdatedBy                 *snowflake.ID `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt                 time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                 time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }
