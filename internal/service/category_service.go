package service

import (
	"fmt"
	"strings"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/storage"
)

type CategoryService struct {
	storage *storage.Storage
}

func NewCategoryService(s *storage.Storage) *CategoryService {
	return &CategoryService{storage: s}
}

func (s *CategoryService) Create(userID, name string, typ domain.TransactionType) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}
	if typ != domain.TypeIncome && typ != domain.TypeExpense {
		return nil, fmt.Errorf("unknown category type %q", typ)
	}

	c := &domain.Category{UserID: userID, Name: name, Type: typ}
	if err := s.storage.CreateCategory(c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) List(userID string) ([]*domain.Category, error) {
	return s.storage.ListCategoriesByUser(userID)
}

func (s *CategoryService) Delete(userID, categoryID string) error {
	c, err := s.storage.GetCategory(categoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if c == nil {
		return fmt.Errorf("category not found")
	}
	if c.UserID != userID {
		return fmt.Errorf("access denied")
	}
	return s.storage.DeleteCategory(categoryID)
}
