package handler

import (
	"errors"
	"net/http"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	feeService *service.FeeService
}

func NewSettingsHandler(fs *service.FeeService) *SettingsHandler {
	return &SettingsHandler{feeService: fs}
}

// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.feeService.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy cấu hình hệ thống", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PUT /api/v1/settings/fees
func (h *SettingsHandler) UpdateFees(c *gin.Context) {
	var dto domain.UpdateFeesDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	settings, err := h.feeService.UpdateFees(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi cập nhật biểu phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GET /api/v1/settings/discount-tiers
func (h *SettingsHandler) GetDiscountTiers(c *gin.Context) {
	tiers, err := h.feeService.GetDiscountTiers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy mức giảm giá", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tiers)
}

// PUT /api/v1/settings/discount-tiers
func (h *SettingsHandler) ReplaceDiscountTiers(c *gin.Context) {
	var tiers []domain.DiscountTier
	if err := c.ShouldBindJSON(&tiers); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	if err := h.feeService.ReplaceDiscountTiers(c.Request.Context(), tiers); err != nil {
		if errors.Is(err, service.ErrInvalidDiscountTiers) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi cập nhật mức giảm giá", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật các mức giảm giá"})
}
