package domain

import "time"

// DetectionEvent là sự kiện nhận dạng biển số từ camera, nhận qua SQS.
// CameraID có tiền tố IN-/OUT- để phân biệt camera vào và ra.
type DetectionEvent struct {
	EventID      string    `json:"event_id"`
	CameraID     string    `json:"camera_id"`
	LicensePlate string    `json:"license_plate"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClassificationHint là gợi ý loại xe từ mô hình nhận dạng ảnh.
type ClassificationHint struct {
	Label      VehicleType `json:"label"`
	Confidence float64     `json:"confidence"`
}

// SlotUpdateNotification được đẩy qua WebSocket khi trạng thái chỗ đỗ thay đổi.
type SlotUpdateNotification struct {
	EventType string       `json:"event_type"`
	Slot      *ParkingSlot `json:"slot,omitempty"`
	Vehicle   *Vehicle     `json:"vehicle,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
