package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func renderNotFound(c *gin.Context, message string) {
	c.HTML(http.StatusNotFound, "error.html", gin.H{
		"title": "未找到",
		"error": message,
	})
}

func renderServerError(c *gin.Context, message string) {
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{
		"title": "服务器错误",
		"error": message,
	})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseUintValues(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := strconv.ParseUint(trimmed, 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(parsed))
	}
	return ids
}
