package handler

import (
	"encoding/base64"
	"log"
	"net/http"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	lprService *service.LPRService
	classifier *service.ClassificationService
}

func NewLPRHandler(lprService *service.LPRService, classifier *service.ClassificationService) *LPRHandler {
	return &LPRHandler{lprService: lprService, classifier: classifier}
}

// POST /api/v1/lpr/process-image
// Nhận ảnh base64 từ quầy vận hành, trả về biển số và loại xe gợi ý.
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload không hợp lệ: " + err.Error()})
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu ảnh không hợp lệ"})
		return
	}
	if len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu ảnh rỗng"})
		return
	}

	ctx := c.Request.Context()
	detectedPlate, confidence, err := h.lprService.ProcessImageForLPR(ctx, imageBytes)
	if err != nil {
		log.Printf("LPRHandler: lỗi nhận dạng biển số: %v", err)
		c.JSON(http.StatusOK, domain.LPRResponseDTO{ErrorMessage: "Không nhận dạng được biển số."})
		return
	}

	hint, err := h.lprService.DetectVehicleType(ctx, imageBytes)
	if err != nil {
		log.Printf("LPRHandler: lỗi nhận dạng loại xe: %v", err)
	}
	vehicleType := h.classifier.Classify(detectedPlate, hint)

	c.JSON(http.StatusOK, domain.LPRResponseDTO{
		DetectedPlate: detectedPlate,
		Confidence:    confidence,
		VehicleType:   string(vehicleType),
	})
}
