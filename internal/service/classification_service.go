package service

import (
	"log"
	"strings"

	"smart_parking_core/internal/domain"
)

const (
	hintStrongConfidence = 0.65
	hintWeakConfidence   = 0.5
)

type classificationRule struct {
	name  string
	apply func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool)
}

// ClassificationService quyết định loại xe từ biển số và gợi ý của mô hình
// nhận dạng ảnh. Các luật được thử theo thứ tự, luật đầu tiên khớp sẽ quyết định.
type ClassificationService struct {
	rules []classificationRule
}

func NewClassificationService() *ClassificationService {
	return &ClassificationService{rules: defaultClassificationRules()}
}

func defaultClassificationRules() []classificationRule {
	return []classificationRule{
		{
			// Mô hình đủ tự tin thì tin mô hình
			name: "hint-strong",
			apply: func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool) {
				if hint != nil && hint.Confidence > hintStrongConfidence {
					return hint.Label, true
				}
				return "", false
			},
		},
		{
			// Biển ngắn không gạch là đặc trưng xe máy, trừ khi mô hình phản đối đủ mạnh
			name: "format-motorbike",
			apply: func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool) {
				if plateLooksMotorbike(plate) {
					if hint != nil && hint.Confidence >= hintWeakConfidence && hint.Label != domain.VehicleMotorbike {
						return "", false
					}
					return domain.VehicleMotorbike, true
				}
				return "", false
			},
		},
		{
			name: "format-car",
			apply: func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool) {
				if plateLooksCar(plate) {
					if hint != nil && hint.Confidence >= hintWeakConfidence && hint.Label != domain.VehicleCar {
						return "", false
					}
					return domain.VehicleCar, true
				}
				return "", false
			},
		},
		{
			name: "hint-weak",
			apply: func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool) {
				if hint != nil && hint.Confidence >= hintWeakConfidence {
					return hint.Label, true
				}
				return "", false
			},
		},
		{
			// Luật chốt theo độ dài, luôn khớp
			name: "length-fallback",
			apply: func(plate string, hint *domain.ClassificationHint) (domain.VehicleType, bool) {
				if len(plate) <= 9 {
					return domain.VehicleMotorbike, true
				}
				return domain.VehicleCar, true
			},
		},
	}
}

func plateLooksMotorbike(plate string) bool {
	return len(plate) <= 8 && !strings.Contains(plate, "-")
}

func plateLooksCar(plate string) bool {
	return len(plate) >= 9 && strings.Contains(plate, "-")
}

func (s *ClassificationService) Classify(plate string, hint *domain.ClassificationHint) domain.VehicleType {
	for _, rule := range s.rules {
		if result, ok := rule.apply(plate, hint); ok {
			log.Printf("Classification: biển '%s' -> %s (luật %s)", plate, result, rule.name)
			return result
		}
	}
	// Không thể tới đây vì luật cuối luôn khớp
	return domain.VehicleCar
}
