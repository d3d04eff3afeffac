package main

import (
	"fmt"
	"log"

	"github.com/blogadmin/internal/config"
	"github.com/blogadmin/internal/db"
	"golang.org/x/crypto/bcrypt"
)

var defaultCategories = []string{"未分类", "技术", "生活", "随笔"}

var defaultTags = []string{"Go", "Web", "数据库", "前端", "笔记"}

func main() {
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	// 检查是否已存在用户
	var count int64
	db.DB.Model(&db.User{}).Count(&count)
	if count == 0 {
		password := "admin123" // 默认密码
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("密码加密失败:", err)
		}

		user := db.User{
			Username: "admin",
			Password: string(hashedPassword),
			Email:    "admin@example.com",
		}

		if err := db.DB.Create(&user).Error; err != nil {
			log.Fatal("创建用户失败:", err)
		}

		fmt.Println("默认管理员用户创建成功")
		fmt.Println("用户名: admin")
		fmt.Println("密码: admin123")
	}

	var categoryCount int64
	db.DB.Model(&db.Category{}).Count(&categoryCount)
	if categoryCount == 0 {
		for _, name := range defaultCategories {
			if err := db.DB.Create(&db.Category{Name: name}).Error; err != nil {
				log.Fatal("创建分类失败:", err)
			}
		}
		fmt.Printf("已创建 %d 个默认分类\n", len(defaultCategories))
	}

	var tagCount int64
	db.DB.Model(&db.Tag{}).Count(&tagCount)
	if tagCount == 0 {
		for _, name := range defaultTags {
			if err := db.DB.Create(&db.Tag{Name: name}).Error; err != nil {
				log.Fatal("创建标签失败:", err)
			}
		}
		fmt.Printf("已创建 %d 个默认标签\n", len(defaultTags))
	}
}
