package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"gopkg.in/guregu/null.v4"
)

// Số vòng đọc lại danh sách slot trống khi mọi ứng viên đều bị giành mất
const maxAllocateRounds = 3

type SlotService struct {
	slotRepo     repository.ParkingSlotRepository
	vehicleRepo  repository.VehicleRepository
	settingsRepo repository.SettingsRepository
}

func NewSlotService(slotRepo repository.ParkingSlotRepository, vehicleRepo repository.VehicleRepository,
	settingsRepo repository.SettingsRepository) *SlotService {
	return &SlotService{slotRepo: slotRepo, vehicleRepo: vehicleRepo, settingsRepo: settingsRepo}
}

func slotPrefix(vehicleType domain.VehicleType) string {
	if vehicleType == domain.VehicleMotorbike {
		return "M"
	}
	return "C"
}

func formatSlotID(vehicleType domain.VehicleType, index int) string {
	return fmt.Sprintf("%s%03d", slotPrefix(vehicleType), index)
}

// InitializeParkingSlots tạo các chỗ đỗ M001../C001.. nếu bãi còn trống.
func (s *SlotService) InitializeParkingSlots(ctx context.Context, motorbikeSlots, carSlots int) error {
	existing, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("lỗi đọc danh sách chỗ đỗ: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err == nil && settings.MotorbikeSlots > 0 {
		motorbikeSlots = settings.MotorbikeSlots
		carSlots = settings.CarSlots
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	slots := make([]domain.ParkingSlot, 0, motorbikeSlots+carSlots)
	for i := 1; i <= motorbikeSlots; i++ {
		slots = append(slots, domain.ParkingSlot{
			SlotID: formatSlotID(domain.VehicleMotorbike, i),
			Type:   domain.VehicleMotorbike,
			Status: domain.SlotAvailable,
		})
	}
	for i := 1; i <= carSlots; i++ {
		slots = append(slots, domain.ParkingSlot{
			SlotID: formatSlotID(domain.VehicleCar, i),
			Type:   domain.VehicleCar,
			Status: domain.SlotAvailable,
		})
	}
	if err := s.slotRepo.CreateBatch(ctx, slots); err != nil {
		return fmt.Errorf("lỗi khởi tạo chỗ đỗ: %w", err)
	}

	if errors.Is(err, repository.ErrNotFound) || settings == nil {
		_, saveErr := s.settingsRepo.Save(ctx, &domain.SystemSettings{
			MotorbikeSlots:      motorbikeSlots,
			CarSlots:            carSlots,
			CasualFeeMotorbike:  defaultCasualFeeMotorbike,
			CasualFeeCar:        defaultCasualFeeCar,
			MonthlyFeeMotorbike: defaultMonthlyFeeMotorbike,
			MonthlyFeeCar:       defaultMonthlyFeeCar,
		})
		if saveErr != nil {
			log.Printf("SlotService: lỗi lưu cấu hình mặc định: %v", saveErr)
		}
	}

	log.Printf("SlotService: đã khởi tạo %d chỗ xe máy và %d chỗ ô tô", motorbikeSlots, carSlots)
	return nil
}

// AllocateSlot tìm và giành một chỗ trống cho xe theo thứ tự slot ID tăng dần.
// Mỗi ứng viên được giành bằng ghi có điều kiện, nếu bị xe khác lấy trước thì
// chuyển sang ứng viên kế tiếp. Hết ứng viên thì đọc lại danh sách tối đa
// maxAllocateRounds vòng trước khi báo hết chỗ.
func (s *SlotService) AllocateSlot(ctx context.Context, vehicleType domain.VehicleType, vehicleID string) (*domain.ParkingSlot, error) {
	for round := 0; round < maxAllocateRounds; round++ {
		candidates, err := s.slotRepo.FindAvailableByType(ctx, vehicleType)
		if err != nil {
			return nil, fmt.Errorf("lỗi tìm chỗ trống: %w", err)
		}
		if len(candidates) == 0 {
			return nil, repository.ErrSlotExhausted
		}
		for i := range candidates {
			slot := &candidates[i]
			err := s.slotRepo.UpdateStatusIf(ctx, slot.SlotID,
				[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotOccupied, null.StringFrom(vehicleID))
			if err == nil {
				slot.Status = domain.SlotOccupied
				slot.CurrentVehicleID = null.StringFrom(vehicleID)
				return slot, nil
			}
			if errors.Is(err, repository.ErrConflict) {
				continue // slot vừa bị giành, thử slot kế tiếp
			}
			return nil, err
		}
	}
	return nil, repository.ErrSlotExhausted
}

// ClaimSlot giành một slot cụ thể (dùng cho chỗ đỗ cố định của xe tháng).
func (s *SlotService) ClaimSlot(ctx context.Context, slotID string, vehicleID string, from []domain.SlotStatus) (*domain.ParkingSlot, error) {
	err := s.slotRepo.UpdateStatusIf(ctx, slotID, from, domain.SlotOccupied, null.StringFrom(vehicleID))
	if err != nil {
		return nil, err
	}
	return s.slotRepo.FindByID(ctx, slotID)
}

// ReleaseSlot trả một slot đang OCCUPIED về trạng thái đích khi xe ra.
func (s *SlotService) ReleaseSlot(ctx context.Context, slotID string, to domain.SlotStatus) error {
	return s.slotRepo.UpdateStatusIf(ctx, slotID,
		[]domain.SlotStatus{domain.SlotOccupied}, to, null.String{})
}

func (s *SlotService) GetAllSlots(ctx context.Context) ([]domain.ParkingSlot, error) {
	return s.slotRepo.FindAll(ctx)
}

func (s *SlotService) GetSlotByID(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	return s.slotRepo.FindByID(ctx, slotID)
}

func (s *SlotService) Summary(ctx context.Context) ([]domain.SlotSummaryDTO, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byType := map[domain.VehicleType]*domain.SlotSummaryDTO{
		domain.VehicleMotorbike: {Type: domain.VehicleMotorbike},
		domain.VehicleCar:       {Type: domain.VehicleCar},
	}
	for _, slot := range slots {
		summary := byType[slot.Type]
		if summary == nil {
			continue
		}
		summary.Total++
		switch slot.Status {
		case domain.SlotAvailable:
			summary.Available++
		case domain.SlotReserved:
			summary.Reserved++
		case domain.SlotOccupied:
			summary.Occupied++
		}
	}
	return []domain.SlotSummaryDTO{*byType[domain.VehicleMotorbike], *byType[domain.VehicleCar]}, nil
}

// AdjustParkingSpaces thay đổi số chỗ đỗ mỗi loại. Thêm chỗ thì đánh số tiếp
// sau chỉ số cao nhất hiện có; bớt chỗ thì xóa từ chỉ số cao nhất xuống và
// từ chối nếu có chỗ cần xóa đang OCCUPIED.
func (s *SlotService) AdjustParkingSpaces(ctx context.Context, dto domain.AdjustSpacesDTO) error {
	if dto.MotorbikeSlots < 0 || dto.CarSlots < 0 {
		return fmt.Errorf("%w: số chỗ đỗ không được âm", repository.ErrInvalidInput)
	}
	if err := s.adjustType(ctx, domain.VehicleMotorbike, dto.MotorbikeSlots); err != nil {
		return err
	}
	if err := s.adjustType(ctx, domain.VehicleCar, dto.CarSlots); err != nil {
		return err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		settings = &domain.SystemSettings{
			CasualFeeMotorbike:  defaultCasualFeeMotorbike,
			CasualFeeCar:        defaultCasualFeeCar,
			MonthlyFeeMotorbike: defaultMonthlyFeeMotorbike,
			MonthlyFeeCar:       defaultMonthlyFeeCar,
		}
	}
	settings.MotorbikeSlots = dto.MotorbikeSlots
	settings.CarSlots = dto.CarSlots
	if _, err := s.settingsRepo.Save(ctx, settings); err != nil {
		return err
	}
	return nil
}

func (s *SlotService) adjustType(ctx context.Context, vehicleType domain.VehicleType, target int) error {
	slots, err := s.slotRepo.FindByType(ctx, vehicleType)
	if err != nil {
		return err
	}
	current := len(slots)

	if target > current {
		maxIndex := 0
		for _, slot := range slots {
			if idx, err := strconv.Atoi(slot.SlotID[1:]); err == nil && idx > maxIndex {
				maxIndex = idx
			}
		}
		var toCreate []domain.ParkingSlot
		for i := 0; i < target-current; i++ {
			toCreate = append(toCreate, domain.ParkingSlot{
				SlotID: formatSlotID(vehicleType, maxIndex+1+i),
				Type:   vehicleType,
				Status: domain.SlotAvailable,
			})
		}
		if err := s.slotRepo.CreateBatch(ctx, toCreate); err != nil {
			return err
		}
		log.Printf("SlotService: đã thêm %d chỗ loại %s", target-current, vehicleType)
		return nil
	}

	if target < current {
		// Xóa từ slot ID cao nhất xuống
		toRemove := slots[target:]
		ids := make([]string, 0, len(toRemove))
		for _, slot := range toRemove {
			if slot.Status == domain.SlotOccupied {
				return fmt.Errorf("%w: chỗ %s đang có xe, không thể thu hẹp", repository.ErrConflict, slot.SlotID)
			}
			ids = append(ids, slot.SlotID)
		}
		deleted, err := s.slotRepo.DeleteIfNotOccupied(ctx, ids)
		if err != nil {
			return err
		}
		if deleted != int64(len(ids)) {
			// Có xe vào đúng slot đó giữa lúc kiểm tra và lúc xóa
			return fmt.Errorf("%w: một chỗ đỗ vừa bị chiếm trong lúc thu hẹp", repository.ErrConflict)
		}
		log.Printf("SlotService: đã bớt %d chỗ loại %s", len(ids), vehicleType)
	}
	return nil
}

// ResetParkingLot xóa toàn bộ chỗ đỗ và tạo lại theo cấu hình.
// Từ chối khi còn xe trong bãi.
func (s *SlotService) ResetParkingLot(ctx context.Context) error {
	parked, err := s.vehicleRepo.CountParked(ctx)
	if err != nil {
		return err
	}
	if parked > 0 {
		return fmt.Errorf("%w: còn %d xe trong bãi, không thể reset", repository.ErrConflict, parked)
	}
	if err := s.slotRepo.DeleteAll(ctx); err != nil {
		return err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return err
	}
	return s.InitializeParkingSlots(ctx, settings.MotorbikeSlots, settings.CarSlots)
}
