package service

import (
	"context"
	"fmt"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
)

// IDGeneratorService sinh ID nghiệp vụ có tiền tố theo loại:
// M001/C001 cho lượt gửi vãng lai, MM001/MC001 cho xe tháng,
// TRX000001 cho giao dịch, ADM001/EMP001 cho nhân viên.
type IDGeneratorService struct {
	seqRepo repository.SequenceRepository
}

func NewIDGeneratorService(seqRepo repository.SequenceRepository) *IDGeneratorService {
	return &IDGeneratorService{seqRepo: seqRepo}
}

func (s *IDGeneratorService) NextVehicleID(ctx context.Context, vehicleType domain.VehicleType) (string, error) {
	prefix := "C"
	if vehicleType == domain.VehicleMotorbike {
		prefix = "M"
	}
	n, err := s.seqRepo.Next(ctx, "vehicle_"+prefix)
	if err != nil {
		return "", fmt.Errorf("lỗi sinh ID xe: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, n), nil
}

func (s *IDGeneratorService) NextMonthlyVehicleID(ctx context.Context, vehicleType domain.VehicleType) (string, error) {
	prefix := "MC"
	if vehicleType == domain.VehicleMotorbike {
		prefix = "MM"
	}
	n, err := s.seqRepo.Next(ctx, "monthly_"+prefix)
	if err != nil {
		return "", fmt.Errorf("lỗi sinh ID xe tháng: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, n), nil
}

func (s *IDGeneratorService) NextTransactionID(ctx context.Context) (string, error) {
	n, err := s.seqRepo.Next(ctx, "transaction")
	if err != nil {
		return "", fmt.Errorf("lỗi sinh ID giao dịch: %w", err)
	}
	return fmt.Sprintf("TRX%06d", n), nil
}

func (s *IDGeneratorService) NextEmployeeID(ctx context.Context, role string) (string, error) {
	prefix := "EMP"
	if role == "admin" {
		prefix = "ADM"
	}
	n, err := s.seqRepo.Next(ctx, "employee_"+prefix)
	if err != nil {
		return "", fmt.Errorf("lỗi sinh ID nhân viên: %w", err)
	}
	return fmt.Sprintf("%s%03d", prefix, n), nil
}
