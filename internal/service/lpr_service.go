package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"smart_parking_core/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

type LPRService struct {
	rekognitionClient *rekognition.Client
}

func NewLPRService(rekClient *rekognition.Client) *LPRService {
	return &LPRService{rekognitionClient: rekClient}
}

// Regex cơ bản cho biển số Việt Nam, ví dụ: 29A-12345, 51G-12345, 51F1-2345
var plateRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{1,2}[0-9]?[- ]?[0-9]{3,5}(\.[0-9]{2})?$`)

// ProcessImageForLPR nhận ảnh dưới dạng bytes, gọi Rekognition và cố gắng trích xuất biển số
func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.rekognitionClient == nil {
		return "", 0, fmt.Errorf("Rekognition client chưa được khởi tạo")
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{
			Bytes: imageBytes,
		},
	}

	result, err := s.rekognitionClient.DetectText(ctx, input)
	if err != nil {
		return "", 0, fmt.Errorf("lỗi Rekognition DetectText: %w", err)
	}

	var detectedTexts []string
	var bestPlate string
	var maxConfidence float32

	for _, textDetection := range result.TextDetections {
		if textDetection.Type != types.TextTypesLine && textDetection.Type != types.TextTypesWord {
			continue
		}
		if textDetection.DetectedText == nil || textDetection.Confidence == nil {
			continue
		}
		txt := strings.ToUpper(strings.ReplaceAll(*textDetection.DetectedText, " ", ""))
		txt = strings.ReplaceAll(txt, ".", "")
		detectedTexts = append(detectedTexts, fmt.Sprintf("%s (%.2f)", txt, *textDetection.Confidence))

		if plateRegex.MatchString(txt) && *textDetection.Confidence > maxConfidence {
			maxConfidence = *textDetection.Confidence
			bestPlate = NormalizePlate(*textDetection.DetectedText)
		}
	}

	if bestPlate != "" {
		log.Printf("LPRService: biển số được chọn: '%s' với độ tin cậy %.2f", bestPlate, maxConfidence)
		return bestPlate, maxConfidence, nil
	}

	log.Printf("LPRService: không có văn bản nào khớp định dạng biển số. Văn bản nhận dạng: %s", strings.Join(detectedTexts, ", "))
	return "", 0, fmt.Errorf("không nhận dạng được biển số từ ảnh")
}

// DetectVehicleType dùng Rekognition DetectLabels để đoán loại xe trong ảnh,
// trả về nil nếu không có nhãn xe nào đủ rõ.
func (s *LPRService) DetectVehicleType(ctx context.Context, imageBytes []byte) (*domain.ClassificationHint, error) {
	if s.rekognitionClient == nil {
		return nil, fmt.Errorf("Rekognition client chưa được khởi tạo")
	}

	result, err := s.rekognitionClient.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: imageBytes},
		MaxLabels:     aws.Int32(10),
		MinConfidence: aws.Float32(40),
	})
	if err != nil {
		return nil, fmt.Errorf("lỗi Rekognition DetectLabels: %w", err)
	}

	var best *domain.ClassificationHint
	for _, label := range result.Labels {
		if label.Name == nil || label.Confidence == nil {
			continue
		}
		var vehicleType domain.VehicleType
		switch strings.ToLower(*label.Name) {
		case "motorcycle", "moped", "scooter":
			vehicleType = domain.VehicleMotorbike
		case "car", "automobile", "truck", "van", "suv":
			vehicleType = domain.VehicleCar
		default:
			continue
		}
		confidence := float64(*label.Confidence) / 100
		if best == nil || confidence > best.Confidence {
			best = &domain.ClassificationHint{Label: vehicleType, Confidence: confidence}
		}
	}
	if best != nil {
		log.Printf("LPRService: nhãn loại xe %s với độ tin cậy %.2f", best.Label, best.Confidence)
	}
	return best, nil
}
