package handler

import (
	"errors"
	"net/http"
	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingHandler struct {
	parkingService *service.ParkingService
}

func NewParkingHandler(ps *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: ps}
}

// POST /api/v1/parking/check-in
func (h *ParkingHandler) CheckIn(c *gin.Context) {
	var dto domain.VehicleCheckInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	result, err := h.parkingService.CheckIn(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVehicleAlreadyParked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrSlotExhausted):
			c.JSON(http.StatusConflict, gin.H{"error": "Bãi xe đã hết chỗ cho loại xe này"})
		case errors.Is(err, repository.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi check-in xe", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, result)
}

// POST /api/v1/parking/check-out
func (h *ParkingHandler) CheckOut(c *gin.Context) {
	var dto domain.VehicleCheckOutDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	result, err := h.parkingService.CheckOut(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVehicleNotParked):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi check-out xe", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// GET /api/v1/parking/vehicles
func (h *ParkingHandler) GetParkedVehicles(c *gin.Context) {
	vehicles, err := h.parkingService.GetParkedVehicles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy danh sách xe trong bãi", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicles)
}
