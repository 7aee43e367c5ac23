package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
)

// Sự kiện nhận dạng dưới ngưỡng này bị bỏ qua hoàn toàn
const minDetectionConfidence = 0.4

const (
	entryCameraPrefix = "IN-"
	exitCameraPrefix  = "OUT-"
)

// CameraService xử lý luồng sự kiện nhận dạng biển số từ camera: lọc trùng,
// phân loại xe rồi gọi check-in/check-out tương ứng với camera vào/ra.
type CameraService struct {
	dedup      *PlateDedupService
	classifier *ClassificationService
	parking    *ParkingService
}

func NewCameraService(dedup *PlateDedupService, classifier *ClassificationService, parking *ParkingService) *CameraService {
	return &CameraService{dedup: dedup, classifier: classifier, parking: parking}
}

// HandleDetectionEvent xử lý một message từ queue. Trả về error chỉ với lỗi
// tạm thời (DB, mạng) để message được đưa lại vào queue; dữ liệu hỏng hoặc
// sự kiện bị lọc thì trả nil cho message được xóa.
func (s *CameraService) HandleDetectionEvent(ctx context.Context, body string) error {
	var event domain.DetectionEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		log.Printf("CameraService: message không đúng định dạng, bỏ qua: %v", err)
		return nil
	}
	if event.CameraID == "" || event.LicensePlate == "" {
		log.Printf("CameraService: sự kiện thiếu camera_id hoặc license_plate, bỏ qua")
		return nil
	}
	if event.Confidence < minDetectionConfidence {
		log.Printf("CameraService: độ tin cậy %.2f dưới ngưỡng, bỏ qua biển '%s'", event.Confidence, event.LicensePlate)
		return nil
	}

	plate := NormalizePlate(event.LicensePlate)
	now := event.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if !s.dedup.ShouldProcess(event.CameraID, plate, now) {
		log.Printf("CameraService: biển '%s' trùng với nhận dạng gần đây trên camera %s, bỏ qua", plate, event.CameraID)
		return nil
	}

	switch {
	case strings.HasPrefix(event.CameraID, entryCameraPrefix):
		return s.handleEntry(ctx, plate)
	case strings.HasPrefix(event.CameraID, exitCameraPrefix):
		return s.handleExit(ctx, plate)
	default:
		log.Printf("CameraService: camera %s không có tiền tố IN-/OUT-, bỏ qua", event.CameraID)
		return nil
	}
}

func (s *CameraService) handleEntry(ctx context.Context, plate string) error {
	vehicleType := s.classifier.Classify(plate, nil)
	_, err := s.parking.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: plate,
		VehicleType:  string(vehicleType),
	})
	if err != nil {
		if errors.Is(err, ErrVehicleAlreadyParked) || errors.Is(err, repository.ErrSlotExhausted) ||
			errors.Is(err, repository.ErrInvalidInput) {
			log.Printf("CameraService: check-in biển '%s' bị từ chối: %v", plate, err)
			return nil
		}
		return err
	}
	return nil
}

func (s *CameraService) handleExit(ctx context.Context, plate string) error {
	_, err := s.parking.CheckOut(ctx, domain.VehicleCheckOutDTO{LicensePlate: plate})
	if err != nil {
		if errors.Is(err, ErrVehicleNotParked) || errors.Is(err, repository.ErrInvalidInput) {
			log.Printf("CameraService: check-out biển '%s' bị từ chối: %v", plate, err)
			return nil
		}
		return err
	}
	return nil
}
