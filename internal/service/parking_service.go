package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

var ErrVehicleAlreadyParked = errors.New("xe đang trong bãi, không thể check-in lần nữa")
var ErrVehicleNotParked = errors.New("không tìm thấy xe đang trong bãi")

// SlotNotifier đẩy cập nhật trạng thái bãi xe đến các client realtime.
type SlotNotifier interface {
	BroadcastSlotUpdate(notification domain.SlotUpdateNotification)
}

type ParkingService struct {
	slotService *SlotService
	vehicleRepo repository.VehicleRepository
	monthlyRepo repository.MonthlyVehicleRepository
	idGen       *IDGeneratorService
	feeService  *FeeService
	txService   *TransactionService
	notifier    SlotNotifier
}

func NewParkingService(slotService *SlotService, vehicleRepo repository.VehicleRepository,
	monthlyRepo repository.MonthlyVehicleRepository, idGen *IDGeneratorService,
	feeService *FeeService, txService *TransactionService, notifier SlotNotifier) *ParkingService {
	return &ParkingService{
		slotService: slotService,
		vehicleRepo: vehicleRepo,
		monthlyRepo: monthlyRepo,
		idGen:       idGen,
		feeService:  feeService,
		txService:   txService,
		notifier:    notifier,
	}
}

// CheckIn cho xe vào bãi. Xe tháng còn hiệu lực được ưu tiên chỗ đỗ cố định
// của mình; nếu chỗ đó đang bị chiếm thì vẫn cho vào bằng chỗ thường,
// không bao giờ chặn xe ở cổng vì lỗi chỗ cố định.
func (s *ParkingService) CheckIn(ctx context.Context, dto domain.VehicleCheckInDTO) (*domain.CheckInResultDTO, error) {
	plate := NormalizePlate(dto.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: biển số rỗng", repository.ErrInvalidInput)
	}

	if _, err := s.vehicleRepo.FindParkedByPlate(ctx, plate); err == nil {
		return nil, fmt.Errorf("%w: biển số %s", ErrVehicleAlreadyParked, plate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi kiểm tra xe trong bãi: %w", err)
	}

	vehicleType := domain.VehicleType(dto.VehicleType)

	monthly, err := s.monthlyRepo.FindValidByPlate(ctx, plate)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi tra cứu xe tháng: %w", err)
	}

	var vehicleID string
	isMonthly := monthly != nil
	if isMonthly {
		vehicleID = monthly.VehicleID
		vehicleType = monthly.Type
	} else {
		vehicleID, err = s.idGen.NextVehicleID(ctx, vehicleType)
		if err != nil {
			return nil, err
		}
	}

	slot, err := s.claimSlotFor(ctx, monthly, vehicleType, vehicleID)
	if err != nil {
		return nil, err
	}

	vehicle := &domain.Vehicle{
		VehicleID:    vehicleID,
		LicensePlate: plate,
		Type:         vehicleType,
		Status:       domain.VehicleParked,
		SlotID:       slot.SlotID,
		IsMonthly:    isMonthly,
		EntryTime:    time.Now().UTC(),
	}
	created, err := s.vehicleRepo.Create(ctx, vehicle)
	if err != nil {
		// Trả lại slot vừa giành để không kẹt chỗ
		if relErr := s.slotService.ReleaseSlot(ctx, slot.SlotID, domain.SlotAvailable); relErr != nil {
			log.Printf("ParkingService: lỗi trả lại slot %s sau khi check-in thất bại: %v", slot.SlotID, relErr)
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: biển số %s", ErrVehicleAlreadyParked, plate)
		}
		return nil, fmt.Errorf("lỗi ghi nhận xe vào bãi: %w", err)
	}

	log.Printf("ParkingService: xe %s (biển %s) vào bãi, chỗ %s", vehicleID, plate, slot.SlotID)
	s.broadcast("CHECK_IN", slot, created)
	return &domain.CheckInResultDTO{Vehicle: created, Slot: slot}, nil
}

func (s *ParkingService) claimSlotFor(ctx context.Context, monthly *domain.MonthlyVehicle,
	vehicleType domain.VehicleType, vehicleID string) (*domain.ParkingSlot, error) {
	if monthly != nil && monthly.FixedSlotID.Valid {
		slot, err := s.slotService.ClaimSlot(ctx, monthly.FixedSlotID.String, vehicleID,
			[]domain.SlotStatus{domain.SlotAvailable, domain.SlotReserved})
		if err == nil {
			return slot, nil
		}
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
			log.Printf("ParkingService: chỗ cố định %s của xe tháng %s không khả dụng, chuyển sang chỗ thường",
				monthly.FixedSlotID.String, monthly.VehicleID)
		} else {
			return nil, err
		}
	}
	return s.slotService.AllocateSlot(ctx, vehicleType, vehicleID)
}

// CheckOut cho xe ra bãi, tính phí vãng lai và trả chỗ đỗ. Chỗ cố định của
// xe tháng còn hiệu lực được trả về RESERVED, các trường hợp khác về AVAILABLE.
func (s *ParkingService) CheckOut(ctx context.Context, dto domain.VehicleCheckOutDTO) (*domain.CheckOutResultDTO, error) {
	vehicle, err := s.findParkedVehicle(ctx, dto)
	if err != nil {
		return nil, err
	}

	var fee float64
	var transaction *domain.Transaction
	if !vehicle.IsMonthly {
		fee, err = s.feeService.CasualFee(ctx, vehicle.Type)
		if err != nil {
			return nil, fmt.Errorf("lỗi tính phí gửi xe: %w", err)
		}
		transaction, err = s.txService.CreateTransaction(ctx, domain.CreateTransactionDTO{
			IdempotencyKey: fmt.Sprintf("checkout-%s-%d", vehicle.VehicleID, vehicle.EntryTime.Unix()),
			VehicleID:      vehicle.VehicleID,
			LicensePlate:   vehicle.LicensePlate,
			Amount:         fee,
			Type:           string(domain.TxParkingFee),
			PaymentMethod:  string(domain.PayCash),
			Description:    fmt.Sprintf("Phí gửi xe vãng lai %s", vehicle.LicensePlate),
		})
		if err != nil {
			return nil, fmt.Errorf("lỗi tạo giao dịch phí gửi xe: %w", err)
		}
	}

	vehicle.Status = domain.VehicleLeft
	vehicle.ExitTime = null.TimeFrom(time.Now().UTC())
	updated, err := s.vehicleRepo.Update(ctx, vehicle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: xe %s", ErrVehicleNotParked, vehicle.VehicleID)
		}
		return nil, fmt.Errorf("lỗi cập nhật xe ra bãi: %w", err)
	}

	releaseTo := s.releaseTargetFor(ctx, updated)
	if err := s.slotService.ReleaseSlot(ctx, updated.SlotID, releaseTo); err != nil {
		// Không chặn xe ra vì lỗi trả chỗ, chỉ ghi log để đối soát
		log.Printf("ParkingService: lỗi trả chỗ %s về %s khi xe %s ra: %v", updated.SlotID, releaseTo, updated.VehicleID, err)
	}

	log.Printf("ParkingService: xe %s ra bãi, chỗ %s về %s, phí %.0f", updated.VehicleID, updated.SlotID, releaseTo, fee)
	s.broadcast("CHECK_OUT", nil, updated)
	return &domain.CheckOutResultDTO{Vehicle: updated, Fee: fee, Transaction: transaction}, nil
}

func (s *ParkingService) findParkedVehicle(ctx context.Context, dto domain.VehicleCheckOutDTO) (*domain.Vehicle, error) {
	if dto.VehicleID != "" {
		vehicle, err := s.vehicleRepo.FindByID(ctx, dto.VehicleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrVehicleNotParked, dto.VehicleID)
			}
			return nil, err
		}
		if vehicle.Status != domain.VehicleParked {
			return nil, fmt.Errorf("%w: xe %s đã ra bãi", ErrVehicleNotParked, dto.VehicleID)
		}
		return vehicle, nil
	}
	if dto.LicensePlate == "" {
		return nil, fmt.Errorf("%w: cần vehicle_id hoặc license_plate", repository.ErrInvalidInput)
	}
	vehicle, err := s.vehicleRepo.FindParkedByPlate(ctx, NormalizePlate(dto.LicensePlate))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: biển %s", ErrVehicleNotParked, dto.LicensePlate)
		}
		return nil, err
	}
	return vehicle, nil
}

// releaseTargetFor quyết định chỗ đỗ về AVAILABLE hay RESERVED khi xe ra.
// RESERVED chỉ khi xe tháng còn hiệu lực và đang đỗ đúng chỗ cố định của mình.
func (s *ParkingService) releaseTargetFor(ctx context.Context, vehicle *domain.Vehicle) domain.SlotStatus {
	if !vehicle.IsMonthly {
		return domain.SlotAvailable
	}
	monthly, err := s.monthlyRepo.FindValidByPlate(ctx, vehicle.LicensePlate)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("ParkingService: lỗi tra cứu xe tháng khi xe %s ra: %v", vehicle.VehicleID, err)
		}
		return domain.SlotAvailable
	}
	if monthly.FixedSlotID.Valid && monthly.FixedSlotID.String == vehicle.SlotID {
		return domain.SlotReserved
	}
	return domain.SlotAvailable
}

func (s *ParkingService) GetParkedVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.vehicleRepo.FindParked(ctx)
}

func (s *ParkingService) broadcast(eventType string, slot *domain.ParkingSlot, vehicle *domain.Vehicle) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastSlotUpdate(domain.SlotUpdateNotification{
		EventType: eventType,
		Slot:      slot,
		Vehicle:   vehicle,
		Timestamp: time.Now().UTC(),
	})
}

// NewIdempotencyKey sinh khóa idempotency cho các request không tự mang khóa.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
