package db

import "gorm.io/gorm"

// Post 定义了文章模型
type Post struct {
	gorm.Model
	Title      string `gorm:"not null"`
	Body       string `gorm:"not null"`
	Cover      string
	CategoryID *uint
	Category   *Category
	Tags       []Tag `gorm:"many2many:post_tags;"`
}
