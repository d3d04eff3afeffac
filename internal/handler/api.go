package handler

import (
	"io"

	"github.com/blogadmin/internal/mailer"
	"github.com/blogadmin/internal/service"
	"gorm.io/gorm"
)

// BlobStore abstracts cover image storage for the handlers.
type BlobStore interface {
	Put(dir, filename string, r io.Reader) (string, error)
	Delete(path string) error
}

// coverDir 是封面图片在上传目录下的子目录
const coverDir = "post_covers"

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	posts      *service.PostService
	categories *service.CategoryService
	tags       *service.TagService
	store      BlobStore
	notifier   mailer.Notifier
	uploadURL  string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, store BlobStore, notifier mailer.Notifier, uploadURL string) *API {
	return &API{
		db:         gdb,
		posts:      service.NewPostService(gdb),
		categories: service.NewCategoryService(gdb),
		tags:       service.NewTagService(gdb),
		store:      store,
		notifier:   notifier,
		uploadURL:  uploadURL,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
