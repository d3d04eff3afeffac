package handler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/blogadmin/internal/db"
	"github.com/blogadmin/internal/service"
	"github.com/blogadmin/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubHTMLRender struct{}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	return &stubHTMLInstance{name: name, data: data}
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

type fakeNotifier struct {
	calls    int
	lastTo   string
	lastPost *db.Post
}

func (f *fakeNotifier) PostCreated(to string, post *db.Post) error {
	f.calls++
	f.lastTo = to
	f.lastPost = post
	return nil
}

// recordingStore 包装真实存储并统计删除调用次数
type recordingStore struct {
	inner       *storage.LocalStore
	deleteCalls int
}

func (s *recordingStore) Put(dir, filename string, r io.Reader) (string, error) {
	return s.inner.Put(dir, filename, r)
}

func (s *recordingStore) Delete(path string) error {
	s.deleteCalls++
	return s.inner.Delete(path)
}

type testEnv struct {
	api        *API
	router     *gin.Engine
	gdb        *gorm.DB
	notifier   *fakeNotifier
	store      *recordingStore
	uploadRoot string
	cookies    []*http.Cookie
	user       db.User
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:post-handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Category{}, &db.Tag{}, &db.Post{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := db.User{Username: "tester", Password: string(hashed), Email: "tester@example.com"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	db.DB = gdb

	uploadRoot := t.TempDir()
	store := &recordingStore{inner: storage.NewLocalStore(uploadRoot)}
	notifier := &fakeNotifier{}
	api := NewAPI(gdb, store, notifier, "/static/uploads")

	r := gin.New()
	r.HTMLRender = &stubHTMLRender{}
	r.Use(sessions.Sessions("blogadmin_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/admin/login", api.Login)

	auth := r.Group("/admin")
	auth.Use(AuthRequired())
	{
		auth.GET("/posts", api.ShowPostList)
		auth.GET("/posts/new", api.ShowPostNew)
		auth.POST("/posts", api.CreatePost)
		auth.GET("/posts/:id", api.ShowPost)
		auth.GET("/posts/:id/edit", api.ShowPostEdit)
		auth.POST("/posts/:id", api.UpdatePost)
		auth.POST("/posts/:id/delete", api.DeletePost)
	}

	env := &testEnv{
		api:        api,
		router:     r,
		gdb:        gdb,
		notifier:   notifier,
		store:      store,
		uploadRoot: uploadRoot,
		user:       user,
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	// 登录获取会话 Cookie
	form := url.Values{"username": {"tester"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("login failed with status %d", w.Code)
	}
	env.cookies = w.Result().Cookies()

	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range env.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields url.Values, imageName string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, value := range values {
			if err := w.WriteField(key, value); err != nil {
				t.Fatalf("write field %s: %v", key, err)
			}
		}
	}
	if imageName != "" {
		fw, err := w.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(imageData); err != nil {
			t.Fatalf("write image payload: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func seedHandlerTags(t *testing.T, gdb *gorm.DB, names ...string) []db.Tag {
	t.Helper()
	tags := make([]db.Tag, 0, len(names))
	for _, name := range names {
		tag := db.Tag{Name: name}
		if err := gdb.Create(&tag).Error; err != nil {
			t.Fatalf("seed tag %s: %v", name, err)
		}
		tags = append(tags, tag)
	}
	return tags
}

func TestListRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect to login, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/login" {
		t.Fatalf("expected redirect to /admin/login, got %q", loc)
	}
}

func TestCreatePostWithTagsSendsNotification(t *testing.T) {
	env := setupTestEnv(t)
	tags := seedHandlerTags(t, env.gdb, "Go", "Web")

	fields := url.Values{
		"title": {"Hello"},
		"body":  {"World"},
		"tags":  {strconv.Itoa(int(tags[0].ID)), strconv.Itoa(int(tags[1].ID))},
	}
	body, contentType := multipartBody(t, fields, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := env.do(req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after create, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/posts" {
		t.Fatalf("expected redirect to list, got %q", loc)
	}

	var created db.Post
	if err := env.gdb.Preload("Tags").First(&created).Error; err != nil {
		t.Fatalf("load created post: %v", err)
	}
	if created.Title != "Hello" {
		t.Fatalf("unexpected title %q", created.Title)
	}
	if len(created.Tags) != 2 {
		t.Fatalf("expected 2 tag associations, got %d", len(created.Tags))
	}

	if env.notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", env.notifier.calls)
	}
	if env.notifier.lastTo != env.user.Email {
		t.Fatalf("expected notification to acting user, got %q", env.notifier.lastTo)
	}
	if env.notifier.lastPost == nil || env.notifier.lastPost.ID != created.ID {
		t.Fatalf("expected notification to reference the new post")
	}
}

func TestCreatePostMissingTitleHasNoSideEffects(t *testing.T) {
	env := setupTestEnv(t)

	fields := url.Values{"body": {"World"}}
	body, contentType := multipartBody(t, fields, "cover.png", pngBytes(t))

	req := httptest.NewRequest(http.MethodPost, "/admin/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := env.do(req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected validation failure status 400, got %d", w.Code)
	}

	var count int64
	if err := env.gdb.Model(&db.Post{}).Count(&count).Error; err != nil {
		t.Fatalf("count posts: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no post persisted, got %d", count)
	}

	// 校验失败时封面不应被写入存储
	entries, err := os.ReadDir(env.uploadRoot)
	if err != nil {
		t.Fatalf("read upload root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty upload dir, found %d entries", len(entries))
	}

	if env.notifier.calls != 0 {
		t.Fatalf("expected no notification, got %d", env.notifier.calls)
	}
}

func TestCreatePostStoresCover(t *testing.T) {
	env := setupTestEnv(t)

	fields := url.Values{
		"title": {"Hello"},
		"body":  {"World"},
	}
	body, contentType := multipartBody(t, fields, "cover.png", pngBytes(t))

	req := httptest.NewRequest(http.MethodPost, "/admin/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := env.do(req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after create, got %d", w.Code)
	}

	var created db.Post
	if err := env.gdb.First(&created).Error; err != nil {
		t.Fatalf("load created post: %v", err)
	}
	if !strings.HasPrefix(created.Cover, "post_covers/") {
		t.Fatalf("expected cover under post_covers, got %q", created.Cover)
	}

	full := filepath.Join(env.uploadRoot, filepath.FromSlash(created.Cover))
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("expected cover file on disk: %v", err)
	}
}

func TestUpdatePostOmittingTagsClears(t *testing.T) {
	env := setupTestEnv(t)
	tags := seedHandlerTags(t, env.gdb, "Go", "Web")

	post, err := env.api.posts.Create(service.PostInput{
		Title:  "Hello",
		Body:   "World",
		TagIDs: []uint{tags[0].ID, tags[1].ID},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	form := url.Values{"title": {"Hello2"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/posts/"+strconv.Itoa(int(post.ID)), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after update, got %d", w.Code)
	}

	var updated db.Post
	if err := env.gdb.Preload("Tags").First(&updated, post.ID).Error; err != nil {
		t.Fatalf("load updated post: %v", err)
	}
	if updated.Title != "Hello2" {
		t.Fatalf("expected title updated, got %q", updated.Title)
	}
	if len(updated.Tags) != 0 {
		t.Fatalf("expected tag associations cleared, got %d", len(updated.Tags))
	}
}

func TestUpdatePostNotFound(t *testing.T) {
	env := setupTestEnv(t)

	form := url.Values{"title": {"Hello"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/posts/999", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown post, got %d", w.Code)
	}
}

func TestShowPostNotFound(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/posts/999", nil)
	w := env.do(req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown post, got %d", w.Code)
	}
}

func TestDeletePostRemovesCoverAndAssociations(t *testing.T) {
	env := setupTestEnv(t)
	tags := seedHandlerTags(t, env.gdb, "Go")

	coverPath, err := env.store.Put("post_covers", "cover.png", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("store cover: %v", err)
	}

	post, err := env.api.posts.Create(service.PostInput{
		Title:  "Hello",
		Body:   "World",
		Cover:  coverPath,
		TagIDs: []uint{tags[0].ID},
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/posts/"+strconv.Itoa(int(post.ID))+"/delete", nil)
	w := env.do(req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after delete, got %d", w.Code)
	}

	if env.store.deleteCalls != 1 {
		t.Fatalf("expected one blob deletion, got %d", env.store.deleteCalls)
	}
	full := filepath.Join(env.uploadRoot, filepath.FromSlash(coverPath))
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatalf("expected cover file removed, got %v", err)
	}

	if _, err := env.api.posts.Get(post.ID); !errors.Is(err, service.ErrPostNotFound) {
		t.Fatalf("expected post removed, got %v", err)
	}

	var joinCount int64
	if err := env.gdb.Table("post_tags").Where("post_id = ?", post.ID).Count(&joinCount).Error; err != nil {
		t.Fatalf("count post_tags: %v", err)
	}
	if joinCount != 0 {
		t.Fatalf("expected tag associations cleared, got %d", joinCount)
	}
}

func TestDeletePostWithoutCoverSkipsBlobDelete(t *testing.T) {
	env := setupTestEnv(t)

	post, err := env.api.posts.Create(service.PostInput{Title: "Hello", Body: "World"})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/posts/"+strconv.Itoa(int(post.ID))+"/delete", nil)
	w := env.do(req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after delete, got %d", w.Code)
	}
	if env.store.deleteCalls != 0 {
		t.Fatalf("expected no blob deletion for cover-less post, got %d", env.store.deleteCalls)
	}
}

func TestDeletePostNotFound(t *testing.T) {
	env := setupTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/posts/999/delete", nil)
	w := env.do(req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown post, got %d", w.Code)
	}
}
