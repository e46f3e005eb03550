package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/service"
	"github.com/yeisme/advstorage/pkg/internal/types"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/log"
)

// AdoptInstance 采纳存储区之外的 DICOM 文件.
// 文件不可读或不是 DICOM 时仍返回 200，Status 为 Failure；只有请求体错误和服务不可用返回错误码.
//
//	@Summary	采纳文件
//	@Tags		高级存储
//	@Accept		json
//	@Produce	json
//	@Param		req	body		types.AdoptInstanceRequest	true	"文件路径"
//	@Success	200	{object}	types.AdoptInstanceResponse
//	@Failure	400	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/plugins/advanced-storage/adopt-instance [post]
func AdoptInstance(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	var req types.AdoptInstanceRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := svc.AdoptInstance(c.Request.Context(), req.Path, req.TakeOwnership)
	if errors.Is(err, service.ErrDisabled) {
		respondError(c, err, "adopt instance failed")
		return
	}

	if err != nil {
		log.Logger().Warn().Err(err).Str("path", req.Path).Msg("adopt instance failed")

		status := res.Status
		if status == layout.StoreSuccess {
			status = layout.StoreFailure
		}

		c.JSON(http.StatusOK, types.AdoptInstanceResponse{
			InstanceID: res.InstanceID,
			Status:     status.String(),
			Error:      err.Error(),
		})

		return
	}

	log.Logger().Info().
		Str("path", req.Path).
		Str("instance", res.InstanceID).
		Str("status", res.Status.String()).
		Msg("instance adopted")

	c.JSON(http.StatusOK, types.AdoptInstanceResponse{
		InstanceID:     res.InstanceID,
		AttachmentUUID: res.AttachmentUUID,
		Status:         res.Status.String(),
	})
}

// AbandonInstance 放弃之前采纳的文件，未知路径返回 404.
//
//	@Summary	放弃文件
//	@Tags		高级存储
//	@Accept		json
//	@Param		req	body	types.AbandonInstanceRequest	true	"文件路径"
//	@Success	200
//	@Failure	404	{object}	map[string]string
//	@Router		/plugins/advanced-storage/abandon-instance [post]
func AbandonInstance(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	var req types.AbandonInstanceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := svc.AbandonInstance(c.Request.Context(), req.Path); err != nil {
		respondError(c, err, "abandon instance failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// MoveStorage 创建存储迁移任务.
//
//	@Summary	迁移存储
//	@Tags		高级存储
//	@Accept		json
//	@Produce	json
//	@Param		req	body		types.MoveStorageRequest	true	"资源与目标存储"
//	@Success	200	{object}	types.JobResponse
//	@Failure	400	{object}	map[string]string
//	@Router		/plugins/advanced-storage/move-storage [post]
func MoveStorage(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	var req types.MoveStorageRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := svc.MoveStorage(c.Request.Context(), req.Resources, req.TargetStorageID)
	if err != nil {
		respondError(c, err, "move storage failed")
		return
	}

	c.JSON(http.StatusOK, types.JobResponse{ID: id, Path: "/jobs/" + id})
}

// PluginStatus 返回索引器与延迟删除器状态.
func PluginStatus(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	st, err := svc.Status(c.Request.Context())
	if err != nil {
		respondError(c, err, "status failed")
		return
	}

	c.JSON(http.StatusOK, st)
}
