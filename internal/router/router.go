package router

import (
	"html/template"

	"github.com/blogadmin/internal/config"
	"github.com/blogadmin/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// Setup 配置 Gin 引擎和路由
func Setup(api *handler.API, cfg config.AppConfig) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("blogadmin_session", store))

	// 加载模板并添加自定义函数
	r.SetFuncMap(template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"gt": func(a, b int) bool {
			return a > b
		},
		"lt": func(a, b int) bool {
			return a < b
		},
		"isCurrentCategory": func(id uint, current *uint) bool {
			return current != nil && *current == id
		},
	})
	r.LoadHTMLGlob("web/template/admin/*.html")

	// 静态文件服务
	r.Static("/static", "./web/static")

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.GET("/login", api.ShowLoginPage)
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/posts", api.ShowPostList)
			auth.GET("/posts/new", api.ShowPostNew)
			auth.POST("/posts", api.CreatePost)
			auth.GET("/posts/:id", api.ShowPost)
			auth.GET("/posts/:id/edit", api.ShowPostEdit)
			auth.POST("/posts/:id", api.UpdatePost)
			auth.POST("/posts/:id/delete", api.DeletePost)
		}
	}

	return r
}
