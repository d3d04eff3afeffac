package main

import (
	"log"

	"github.com/blogadmin/internal/config"
	"github.com/blogadmin/internal/db"
	"github.com/blogadmin/internal/handler"
	"github.com/blogadmin/internal/mailer"
	"github.com/blogadmin/internal/router"
	"github.com/blogadmin/internal/storage"
)

func main() {
	cfg := config.Load()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 按环境变量补齐管理员账号
	if err := db.EnsureUser(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	store := storage.NewLocalStore(cfg.UploadDir)
	notifier := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.SiteBaseURL)
	api := handler.NewAPI(db.DB, store, notifier, cfg.UploadURLPath)

	// 设置并运行 Gin 服务器
	r := router.Setup(api, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
