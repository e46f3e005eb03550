// Package handle 提供请求处理器的实现，用于处理HTTP请求.
package handle

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/internal/jobs"
	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/service"
	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/middleware"
	"github.com/yeisme/advstorage/pkg/rule"
)

// statusOf 把领域错误映射为 HTTP 状态码.
func statusOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, ownership.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, storagearea.ErrInexistentFile),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, layout.ErrUnknownStorage),
		errors.Is(err, layout.ErrUnknownContentType),
		errors.Is(err, layout.ErrUnknownResourceType),
		errors.Is(err, layout.ErrSuspiciousPath),
		errors.Is(err, catalog.ErrNotDicom):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrJobActive),
		errors.Is(err, storagearea.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError 记录日志并返回错误响应.
func respondError(c *gin.Context, err error, msg string) {
	status := statusOf(err)

	l := log.Logger()

	event := l.Warn()
	if status >= http.StatusInternalServerError {
		event = l.Error()
	}

	event.Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg(msg)

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON 解析并校验请求体，失败时已写入 400 响应.
// binding 与 rule 共用同一个 validator，校验错误可能来自任一步.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		err = rule.ValidateStruct(req)
	}

	if err == nil {
		return true
	}

	fields := rule.Errors(err)
	log.Logger().Warn().Err(err).Interface("fields", fields).Str("path", c.Request.URL.Path).Msg("invalid request")

	if fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}

	return false
}

// mustService 取出注入的服务，未注入时返回 503.
func mustService(c *gin.Context) (*service.Service, bool) {
	svc := middleware.GetService(c)
	if svc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "advanced storage service not initialized"})
		return nil, false
	}

	return svc, true
}
