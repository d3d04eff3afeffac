package db

import "gorm.io/gorm"

// Category 定义了文章分类模型，文章与分类是多对一关系
type Category struct {
	gorm.Model
	Name  string `gorm:"unique;not null"`
	Posts []Post
}
