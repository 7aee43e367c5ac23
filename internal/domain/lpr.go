package domain

// LPRRequestDTO dùng khi quầy vận hành gửi ảnh lên để nhận dạng.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// LPRResponseDTO trả về biển số đã nhận dạng cùng loại xe gợi ý.
type LPRResponseDTO struct {
	DetectedPlate string  `json:"detected_plate"`
	Confidence    float32 `json:"confidence,omitempty"`
	VehicleType   string  `json:"vehicle_type,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}
