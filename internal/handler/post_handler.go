package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/blogadmin/internal/service"
	"github.com/gin-gonic/gin"
)

// ShowPostList 渲染文章管理列表页面
func (a *API) ShowPostList(c *gin.Context) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}

	result, err := a.posts.List(page)
	if err != nil {
		renderServerError(c, "获取文章列表失败")
		return
	}

	c.HTML(http.StatusOK, "post_list.html", gin.H{
		"title":      "文章管理",
		"posts":      result.Posts,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"total":      result.Total,
		"totalPages": result.TotalPages,
		"uploadURL":  a.uploadURL,
	})
}

// ShowPostNew 渲染文章创建页面
func (a *API) ShowPostNew(c *gin.Context) {
	categories, err := a.categories.List()
	if err != nil {
		renderServerError(c, "获取分类列表失败")
		return
	}

	tags, err := a.tags.List()
	if err != nil {
		renderServerError(c, "获取标签列表失败")
		return
	}

	c.HTML(http.StatusOK, "post_new.html", gin.H{
		"title":      "创建文章",
		"categories": categories,
		"tags":       tags,
	})
}

// CreatePost 处理文章创建表单：先校验必填项，再保存封面，
// 随后在一个事务内持久化文章并同步标签，最后给操作者发送通知邮件。
func (a *API) CreatePost(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		c.Redirect(http.StatusFound, "/admin/login")
		return
	}

	input := service.PostInput{
		Title:  c.PostForm("title"),
		Body:   c.PostForm("body"),
		TagIDs: parseUintValues(c.PostFormArray("tags")),
	}

	if raw := strings.TrimSpace(c.PostForm("category_id")); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			categoryID := uint(id)
			input.CategoryID = &categoryID
		}
	}

	// 校验失败时不产生任何副作用，直接回到表单
	if err := input.Validate(); err != nil {
		a.renderPostForm(c, http.StatusBadRequest, "post_new.html", gin.H{
			"title": "创建文章",
			"error": validationMessage(err),
			"form":  input,
		})
		return
	}

	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			renderServerError(c, "读取封面图片失败")
			return
		}
		defer src.Close()

		path, err := a.store.Put(coverDir, file.Filename, src)
		if err != nil {
			renderServerError(c, "保存封面图片失败")
			return
		}
		input.Cover = path
	}

	post, err := a.posts.Create(input)
	if err != nil {
		renderServerError(c, "创建文章失败")
		return
	}

	// 邮件失败不回滚已创建的文章，仅记录日志
	if err := a.notifier.PostCreated(user.Email, post); err != nil {
		log.Printf("failed to send creation notification for post %d: %v", post.ID, err)
	}

	c.Redirect(http.StatusFound, "/admin/posts")
}

// ShowPost 渲染单篇文章详情页面
func (a *API) ShowPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		renderNotFound(c, "文章不存在")
		return
	}

	post, err := a.posts.Get(id)
	if err != nil {
		a.respondPostError(c, err)
		return
	}

	c.HTML(http.StatusOK, "post_show.html", gin.H{
		"title":     post.Title,
		"post":      post,
		"body":      renderMarkdown(post.Body),
		"uploadURL": a.uploadURL,
	})
}

// ShowPostEdit 渲染文章编辑页面
func (a *API) ShowPostEdit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		renderNotFound(c, "文章不存在")
		return
	}

	post, err := a.posts.Get(id)
	if err != nil {
		a.respondPostError(c, err)
		return
	}

	categories, err := a.categories.List()
	if err != nil {
		renderServerError(c, "获取分类列表失败")
		return
	}

	tags, err := a.tags.List()
	if err != nil {
		renderServerError(c, "获取标签列表失败")
		return
	}

	c.HTML(http.StatusOK, "post_edit.html", gin.H{
		"title":      "编辑文章",
		"post":       post,
		"categories": categories,
		"tags":       tags,
	})
}

// UpdatePost 处理文章编辑表单。只应用表单中出现的字段；
// 标签选择总是整组替换，表单中没有勾选任何标签时关联被清空。
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		renderNotFound(c, "文章不存在")
		return
	}

	var update service.PostUpdate
	if v, ok := c.GetPostForm("title"); ok && strings.TrimSpace(v) != "" {
		update.Title = &v
	}
	if v, ok := c.GetPostForm("body"); ok && strings.TrimSpace(v) != "" {
		update.Body = &v
	}
	if raw := strings.TrimSpace(c.PostForm("category_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
			categoryID := uint(parsed)
			update.CategoryID = &categoryID
		}
	}
	update.TagIDs = parseUintValues(c.PostFormArray("tags"))

	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			renderServerError(c, "读取封面图片失败")
			return
		}
		defer src.Close()

		path, err := a.store.Put(coverDir, file.Filename, src)
		if err != nil {
			renderServerError(c, "保存封面图片失败")
			return
		}
		update.Cover = &path
	}

	post, err := a.posts.Update(id, update)
	if err != nil {
		a.respondPostError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/admin/posts/"+strconv.FormatUint(uint64(post.ID), 10))
}

// DeletePost 删除文章：先尽力删除封面文件，再清空标签关联并删除记录。
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		renderNotFound(c, "文章不存在")
		return
	}

	post, err := a.posts.Get(id)
	if err != nil {
		a.respondPostError(c, err)
		return
	}

	if post.Cover != "" {
		if err := a.store.Delete(post.Cover); err != nil {
			log.Printf("failed to delete cover %s for post %d: %v", post.Cover, post.ID, err)
		}
	}

	if err := a.posts.Delete(post); err != nil {
		renderServerError(c, "删除文章失败")
		return
	}

	c.Redirect(http.StatusFound, "/admin/posts")
}

// renderPostForm 渲染创建表单并附带分类与标签选项。
func (a *API) renderPostForm(c *gin.Context, status int, template string, data gin.H) {
	if categories, err := a.categories.List(); err == nil {
		data["categories"] = categories
	}
	if tags, err := a.tags.List(); err == nil {
		data["tags"] = tags
	}
	c.HTML(status, template, data)
}

func (a *API) respondPostError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrPostNotFound) {
		renderNotFound(c, "文章不存在")
		return
	}
	renderServerError(c, "操作失败")
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTitleRequired):
		return "标题不能为空"
	case errors.Is(err, service.ErrBodyRequired):
		return "正文不能为空"
	default:
		return "表单校验失败"
	}
}
