package handle

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/types"
	"github.com/yeisme/advstorage/pkg/layout"
)

// StoreInstance 接收请求体中的 DICOM 文件并写入存储区.
//
//	@Summary	上传实例
//	@Tags		实例
//	@Accept		application/dicom
//	@Produce	json
//	@Success	200	{object}	types.StoreInstanceResponse
//	@Failure	400	{object}	map[string]string
//	@Router		/instances [post]
func StoreInstance(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "instance too large"})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	res, err := svc.Catalog().StoreInstance(c.Request.Context(), data)
	if err != nil {
		respondError(c, err, "store instance failed")
		return
	}

	c.JSON(http.StatusOK, types.StoreInstanceResponse{
		ID:             res.InstanceID,
		Path:           "/instances/" + res.InstanceID,
		AttachmentUUID: res.AttachmentUUID,
		Status:         res.Status.String(),
	})
}

// GetInstanceFile 读取实例的 DICOM 文件.支持单个 bytes 区间的 Range 请求，返回 206.
func GetInstanceFile(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	header := c.GetHeader("Range")

	c.Header("Accept-Ranges", "bytes")

	if header == "" {
		data, err := svc.Catalog().ReadAttachment(ctx, id, layout.ContentDicom)
		if err != nil {
			respondError(c, err, "read instance failed")
			return
		}

		c.Data(http.StatusOK, "application/dicom", data)

		return
	}

	size, err := svc.Catalog().AttachmentSize(ctx, id, layout.ContentDicom)
	if err != nil {
		respondError(c, err, "read instance failed")
		return
	}

	start, length, err := parseRange(header, size)
	if err != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"error": err.Error()})

		return
	}

	data, err := svc.Catalog().ReadAttachmentRange(ctx, id, layout.ContentDicom, start, length)
	if err != nil {
		respondError(c, err, "read instance range failed")
		return
	}

	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, size))
	c.Data(http.StatusPartialContent, "application/dicom", data)
}

var errInvalidRange = errors.New("invalid range")

// parseRange 解析单个 bytes 区间：start-end、start- 或 -suffix，end 超出时截断到文件末尾.
func parseRange(header string, size int64) (start, length int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidRange, header)
	}

	first, last, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidRange, header)
	}

	end := size - 1

	switch {
	case first == "":
		n, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil || n <= 0 {
			return 0, 0, fmt.Errorf("%w: %q", errInvalidRange, header)
		}

		start = max(size-n, 0)
	default:
		start, err = strconv.ParseInt(first, 10, 64)
		if err != nil || start < 0 {
			return 0, 0, fmt.Errorf("%w: %q", errInvalidRange, header)
		}

		if last != "" {
			e, perr := strconv.ParseInt(last, 10, 64)
			if perr != nil || e < start {
				return 0, 0, fmt.Errorf("%w: %q", errInvalidRange, header)
			}

			end = min(e, size-1)
		}
	}

	if start >= size {
		return 0, 0, fmt.Errorf("%w: %q beyond %d bytes", errInvalidRange, header, size)
	}

	return start, end - start + 1, nil
}

// DeleteResource 返回删除指定层级资源的处理器.
func DeleteResource(level layout.ResourceType) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc, ok := mustService(c)
		if !ok {
			return
		}

		if err := svc.Catalog().DeleteResource(c.Request.Context(), level, c.Param("id")); err != nil {
			respondError(c, err, "delete resource failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{})
	}
}

// ListAttachments 列出实例的附件名.
func ListAttachments(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	atts, err := svc.Catalog().ListAttachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "list attachments failed")
		return
	}

	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, a.ContentType.String())
	}

	c.JSON(http.StatusOK, names)
}

// GetAttachmentInfo 返回附件信息，包括文件路径、归属与索引状态.
//
//	@Summary	附件信息
//	@Tags		实例
//	@Produce	json
//	@Param		id		path		string	true	"实例 ID"
//	@Param		name	path		string	true	"附件名或数值类型"
//	@Success	200		{object}	catalog.AttachmentInfo
//	@Failure	404		{object}	map[string]string
//	@Router		/instances/{id}/attachments/{name}/info [get]
func GetAttachmentInfo(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	ct, err := layout.ParseContentType(c.Param("name"))
	if err != nil {
		respondError(c, err, "invalid attachment name")
		return
	}

	info, err := svc.Catalog().AttachmentInfo(c.Request.Context(), c.Param("id"), ct)
	if err != nil {
		respondError(c, err, "attachment info failed")
		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteAttachment 删除实例的单个附件，dicom 附件会删除整个实例.
func DeleteAttachment(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	ct, err := layout.ParseContentType(c.Param("name"))
	if err != nil {
		respondError(c, err, "invalid attachment name")
		return
	}

	if err := svc.Catalog().DeleteAttachment(c.Request.Context(), c.Param("id"), ct); err != nil {
		respondError(c, err, "delete attachment failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
