package service

import (
	"github.com/blogadmin/internal/db"
	"gorm.io/gorm"
)

// CategoryService wraps category related operations. Categories are only
// enumerated from the admin panel, never mutated here.
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns all categories.
func (s *CategoryService) List() ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
