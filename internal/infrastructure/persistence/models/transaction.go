package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionModel is a ledger transaction. The ledger owns these rows; this
// service only aggregates them.
type TransactionModel struct {
	BaseModel
	BankID      *uuid.UUID                   `gorm:"type:uuid;index"`
	Voided      bool                         `gorm:"not null;default:false"`
	ValueDate   time.Time                    `gorm:"not null"`
	Label       string                       `gorm:"type:varchar(255)"`
	Allocations []TransactionAllocationModel `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionAllocationModel is the signed share of a transaction applied to
// one document
type TransactionAllocationModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (TransactionAllocationModel) TableName() string {
	return "transaction_allocations"
}
