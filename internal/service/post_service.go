package service

import (
	"errors"
	"strings"

	"github.com/blogadmin/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrTitleRequired = errors.New("post title is required")
	ErrBodyRequired  = errors.New("post body is required")
)

// PostsPerPage 是后台文章列表的固定分页大小
const PostsPerPage = 25

// PostService wraps post related database operations.
type PostService struct {
	db *gorm.DB
}

// PostInput represents fields accepted when creating a post.
type PostInput struct {
	Title      string
	Body       string
	Cover      string
	CategoryID *uint
	TagIDs     []uint
}

// Validate checks the required fields before any side effect takes place.
func (in PostInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(in.Body) == "" {
		return ErrBodyRequired
	}
	return nil
}

// PostUpdate enumerates the mutable fields of a post. A nil slot leaves the
// field untouched; TagIDs is always applied, so a nil selection clears the set.
type PostUpdate struct {
	Title      *string
	Body       *string
	Cover      *string
	CategoryID *uint
	TagIDs     []uint
}

// PostListResult aggregates one page of posts with pagination counters.
type PostListResult struct {
	Posts      []db.Post
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{db: gdb}
}

// List returns one fixed-size page of posts with their category preloaded.
func (s *PostService) List(page int) (*PostListResult, error) {
	result := &PostListResult{Page: page, PerPage: PostsPerPage}
	if result.Page <= 0 {
		result.Page = 1
	}

	if err := s.db.Model(&db.Post{}).Count(&result.Total).Error; err != nil {
		return nil, err
	}

	offset := (result.Page - 1) * result.PerPage

	var posts []db.Post
	if err := s.db.Preload("Category").
		Limit(result.PerPage).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, err
	}

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}

	result.Posts = posts
	return result, nil
}

// Get fetches a post by id with category and tags preloaded.
func (s *PostService) Get(id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.Preload("Category").Preload("Tags").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create persists a post and associates tags in a transaction.
func (s *PostService) Create(input PostInput) (*db.Post, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	post := db.Post{
		Title:      strings.TrimSpace(input.Title),
		Body:       input.Body,
		Cover:      input.Cover,
		CategoryID: input.CategoryID,
	}

	return s.saveWithTags(&post, input.TagIDs)
}

// Update applies the supplied fields to an existing post. The tag association
// set is replaced on every call, an omitted selection clears it.
func (s *PostService) Update(id uint, update PostUpdate) (*db.Post, error) {
	var existing db.Post
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if update.Title != nil {
		existing.Title = strings.TrimSpace(*update.Title)
	}
	if update.Body != nil {
		existing.Body = *update.Body
	}
	if update.Cover != nil {
		existing.Cover = *update.Cover
	}
	if update.CategoryID != nil {
		existing.CategoryID = update.CategoryID
	}

	return s.saveWithTags(&existing, update.TagIDs)
}

// Delete clears the tag associations and removes the post row in a transaction.
func (s *PostService) Delete(post *db.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
}

func (s *PostService) saveWithTags(post *db.Post, tagIDs []uint) (*db.Post, error) {
	return post, s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(post).Error; err != nil {
			return err
		}

		// 标签 ID 不做存在性校验，未知 ID 被直接忽略
		var tags []db.Tag
		if len(tagIDs) > 0 {
			if err := tx.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
			return err
		}

		return tx.Preload("Category").Preload("Tags").First(post, post.ID).Error
	})
}
