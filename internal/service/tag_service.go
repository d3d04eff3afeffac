package service

import (
	"github.com/blogadmin/internal/db"
	"gorm.io/gorm"
)

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// List returns all tags.
func (s *TagService) List() ([]db.Tag, error) {
	var tags []db.Tag
	if err := s.db.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
