package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

type Transaction struct {
	ID          string
	UserID      string
	CategoryID  string
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	CreatedAt   time.Time

	// Joined from categories on read; not persisted on the transaction row.
	CategoryName string
}
