package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/storage"
)

type TransactionService struct {
	storage *storage.Storage
}

func NewTransactionService(s *storage.Storage) *TransactionService {
	return &TransactionService{storage: s}
}

func (s *TransactionService) Create(userID, categoryID string, typ domain.TransactionType, amount decimal.Decimal, description string, date time.Time) (*domain.Transaction, error) {
	if typ != domain.TypeIncome && typ != domain.TypeExpense {
		return nil, fmt.Errorf("unknown transaction type %q", typ)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	category, err := s.storage.GetCategory(categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil || category.UserID != userID {
		return nil, fmt.Errorf("category not found")
	}

	t := &domain.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        typ,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Date:        date.UTC(),
	}
	if err := s.storage.CreateTransaction(t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	t.CategoryName = category.Name
	return t, nil
}

// ListMonth returns a user's transactions for the given month.
func (s *TransactionService) ListMonth(userID string, year, month int) ([]*domain.Transaction, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return s.storage.ListTransactionsByRange(userID, from, to)
}

func (s *TransactionService) Delete(userID, transactionID string) error {
	t, err := s.storage.GetTransaction(transactionID)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if t == nil {
		return fmt.Errorf("transaction not found")
	}
	if t.UserID != userID {
		return fmt.Errorf("access denied")
	}
	return s.storage.DeleteTransaction(transactionID)
}
