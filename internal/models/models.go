package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ProductID     string          `gorm:"primaryKey;size:50"        json:"product_id"`
	Name          string          `gorm:"size:255;not null"         json:"name"`
	Category      string          `gorm:"size:100;not null"         json:"category"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity int             `gorm:"default:0"                 json:"stock_quantity"`
	ImageURL      *string         `gorm:"size:500"                  json:"image_url"`
	Brand         *string         `gorm:"size:100"                  json:"brand"`
	// both stamped on every save, matching the upstream schema
	CreatedAt time.Time `gorm:"autoUpdateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"    json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null"                    json:"-"`
	FirstName    string     `gorm:"size:150"                    json:"first_name"`
	LastName     string     `gorm:"size:150"                    json:"last_name"`
	DateJoined   time.Time  `gorm:"autoCreateTime"              json:"date_joined"`
	LastLogin    *time.Time `json:"last_login"`
}

// RefreshToken is the revocation list: a refresh token is honored only
// while its row exists, is not revoked and is not past ExpiresAt.
type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`
	JTI       string `gorm:"index;not null"      json:"jti"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}
