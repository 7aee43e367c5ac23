package service

import (
	"testing"

	"smart_parking_core/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestClassify_HintManhThangDinhDang(t *testing.T) {
	svc := NewClassificationService()

	// Mô hình đủ tự tin thì quyết định, bất kể định dạng biển
	hint := &domain.ClassificationHint{Label: domain.VehicleCar, Confidence: 0.9}
	assert.Equal(t, domain.VehicleCar, svc.Classify("29X1234", hint))

	hint = &domain.ClassificationHint{Label: domain.VehicleMotorbike, Confidence: 0.7}
	assert.Equal(t, domain.VehicleMotorbike, svc.Classify("51G-123.45", hint))
}

func TestClassify_DinhDangBienKhongCoHint(t *testing.T) {
	svc := NewClassificationService()

	// Biển ngắn không gạch: xe máy
	assert.Equal(t, domain.VehicleMotorbike, svc.Classify("29X1234", nil))
	// Biển dài có gạch: ô tô
	assert.Equal(t, domain.VehicleCar, svc.Classify("51G-12345", nil))
}

func TestClassify_HintYeuChiThangKhiDinhDangKhongKhop(t *testing.T) {
	svc := NewClassificationService()

	// Định dạng không rõ (dài nhưng không gạch), hint yếu quyết định
	hint := &domain.ClassificationHint{Label: domain.VehicleCar, Confidence: 0.55}
	assert.Equal(t, domain.VehicleCar, svc.Classify("ABCDEFGHIJKL", hint))

	// Hint yếu mâu thuẫn với định dạng xe máy: không tin cả hai phía,
	// rơi xuống luật hint yếu
	hint = &domain.ClassificationHint{Label: domain.VehicleCar, Confidence: 0.55}
	assert.Equal(t, domain.VehicleCar, svc.Classify("29X1234", hint))
}

func TestClassify_FallbackTheoDoDai(t *testing.T) {
	svc := NewClassificationService()

	// Hint quá yếu bị bỏ qua, biển không khớp định dạng nào rõ ràng
	hint := &domain.ClassificationHint{Label: domain.VehicleCar, Confidence: 0.3}
	assert.Equal(t, domain.VehicleMotorbike, svc.Classify("ABC-1234", hint))
	assert.Equal(t, domain.VehicleMotorbike, svc.Classify("ABCDEFGHI", nil))
	assert.Equal(t, domain.VehicleCar, svc.Classify("ABCDEFGHIJ", nil))
}
