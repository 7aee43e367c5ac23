package handler

import (
	"errors"
	"net/http"
	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingSlotHandler struct {
	slotService *service.SlotService
}

func NewParkingSlotHandler(ss *service.SlotService) *ParkingSlotHandler {
	return &ParkingSlotHandler{slotService: ss}
}

// GET /api/v1/parking-slots
func (h *ParkingSlotHandler) GetAllSlots(c *gin.Context) {
	slots, err := h.slotService.GetAllSlots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy danh sách chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GET /api/v1/parking-slots/summary
func (h *ParkingSlotHandler) GetSummary(c *gin.Context) {
	summary, err := h.slotService.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tổng hợp chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/v1/parking-slots/:slot_id
func (h *ParkingSlotHandler) GetSlotByID(c *gin.Context) {
	slot, err := h.slotService.GetSlotByID(c.Request.Context(), c.Param("slot_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy thông tin chỗ đỗ", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// PUT /api/v1/parking-slots/adjust
func (h *ParkingSlotHandler) AdjustSpaces(c *gin.Context) {
	var dto domain.AdjustSpacesDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	if err := h.slotService.AdjustParkingSpaces(c.Request.Context(), dto); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi điều chỉnh số chỗ đỗ", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật số chỗ đỗ"})
}

// POST /api/v1/parking-slots/reset
func (h *ParkingSlotHandler) ResetParkingLot(c *gin.Context) {
	if err := h.slotService.ResetParkingLot(c.Request.Context()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi reset bãi xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã reset bãi xe theo cấu hình hiện tại"})
}
