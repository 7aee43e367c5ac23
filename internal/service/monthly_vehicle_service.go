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

// Gửi mail nhắc gia hạn khi còn dưới 3 ngày hiệu lực
const expirationReminderWindow = 72 * time.Hour

var ErrMonthlyAlreadyRegistered = errors.New("biển số đã có đăng ký tháng còn hiệu lực")
var ErrPendingAlreadyCompleted = errors.New("đăng ký chờ đã được hoàn tất trước đó")

type MonthlyVehicleService struct {
	monthlyRepo repository.MonthlyVehicleRepository
	pendingRepo repository.PendingRegistrationRepository
	slotRepo    repository.ParkingSlotRepository
	feeService  *FeeService
	idGen       *IDGeneratorService
	email       *EmailService
}

func NewMonthlyVehicleService(monthlyRepo repository.MonthlyVehicleRepository,
	pendingRepo repository.PendingRegistrationRepository, slotRepo repository.ParkingSlotRepository,
	feeService *FeeService, idGen *IDGeneratorService, email *EmailService) *MonthlyVehicleService {
	return &MonthlyVehicleService{
		monthlyRepo: monthlyRepo,
		pendingRepo: pendingRepo,
		slotRepo:    slotRepo,
		feeService:  feeService,
		idGen:       idGen,
		email:       email,
	}
}

// FindAvailableFixedSlot chọn chỗ đỗ cố định cho xe tháng mới: slot AVAILABLE
// đầu tiên theo thứ tự ID chưa bị đăng ký VALID nào khác giữ làm chỗ cố định.
func (s *MonthlyVehicleService) FindAvailableFixedSlot(ctx context.Context, vehicleType domain.VehicleType) (*domain.ParkingSlot, error) {
	slots, err := s.slotRepo.FindAvailableByType(ctx, vehicleType)
	if err != nil {
		return nil, err
	}
	inUse, err := s.monthlyRepo.FindFixedSlotIDsInUse(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool, len(inUse))
	for _, id := range inUse {
		used[id] = true
	}
	for i := range slots {
		if !used[slots[i].SlotID] {
			return &slots[i], nil
		}
	}
	return nil, repository.ErrSlotExhausted
}

// CreatePendingRegistration mở một đăng ký tháng chờ thanh toán. Slot ứng viên
// chỉ được đề cử, chưa bị giữ; việc giữ chỗ xảy ra khi hoàn tất thanh toán.
func (s *MonthlyVehicleService) CreatePendingRegistration(ctx context.Context, dto domain.RegisterMonthlyDTO) (*domain.PendingRegistration, error) {
	plate := NormalizePlate(dto.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: biển số rỗng", repository.ErrInvalidInput)
	}
	vehicleType := domain.VehicleType(dto.VehicleType)

	if _, err := s.monthlyRepo.FindValidByPlate(ctx, plate); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrMonthlyAlreadyRegistered, plate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi kiểm tra đăng ký tháng: %w", err)
	}

	quote, err := s.feeService.MonthlyQuote(ctx, vehicleType, dto.Months)
	if err != nil {
		return nil, err
	}

	candidate, err := s.FindAvailableFixedSlot(ctx, vehicleType)
	if err != nil {
		if errors.Is(err, repository.ErrSlotExhausted) {
			return nil, fmt.Errorf("%w: không còn chỗ cố định cho loại %s", repository.ErrSlotExhausted, vehicleType)
		}
		return nil, err
	}

	pending := &domain.PendingRegistration{
		ID:              uuid.NewString(),
		Kind:            domain.KindRegistration,
		LicensePlate:    plate,
		Type:            vehicleType,
		Months:          dto.Months,
		Amount:          quote.FinalAmount,
		DiscountPercent: quote.DiscountPercent,
		CandidateSlotID: null.StringFrom(candidate.SlotID),
		CustomerName:    dto.CustomerName,
		CustomerEmail:   dto.CustomerEmail,
		CustomerPhone:   dto.CustomerPhone,
		Status:          domain.PendingOpen,
	}
	created, err := s.pendingRepo.Create(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo đăng ký chờ: %w", err)
	}
	log.Printf("MonthlyVehicleService: đã tạo đăng ký chờ %s cho biển %s (%.0f VND)", created.ID, plate, created.Amount)
	return created, nil
}

// CompleteRegistration kích hoạt đăng ký tháng sau khi thanh toán thành công.
// Bản ghi chờ chỉ hoàn tất được đúng một lần nên callback thanh toán gọi trùng
// không tạo ra hai đăng ký.
func (s *MonthlyVehicleService) CompleteRegistration(ctx context.Context, pendingID, transactionID string) (*domain.MonthlyVehicle, error) {
	pending, err := s.pendingRepo.FindByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if pending.Kind != domain.KindRegistration {
		return nil, fmt.Errorf("%w: bản ghi chờ %s không phải đăng ký mới", repository.ErrInvalidInput, pendingID)
	}

	if err := s.pendingRepo.CompleteOnce(ctx, pendingID, transactionID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Đã hoàn tất trước đó: trả về đăng ký hiện có thay vì báo lỗi
			if mv, findErr := s.monthlyRepo.FindValidByPlate(ctx, pending.LicensePlate); findErr == nil {
				log.Printf("MonthlyVehicleService: đăng ký chờ %s đã hoàn tất trước đó, trả về %s", pendingID, mv.VehicleID)
				return mv, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrPendingAlreadyCompleted, pendingID)
		}
		return nil, err
	}

	vehicleID, err := s.idGen.NextMonthlyVehicleID(ctx, pending.Type)
	if err != nil {
		return nil, err
	}

	fixedSlotID := s.reserveFixedSlot(ctx, pending.Type, pending.CandidateSlotID)

	now := time.Now().UTC()
	mv := &domain.MonthlyVehicle{
		VehicleID:       vehicleID,
		LicensePlate:    pending.LicensePlate,
		Type:            pending.Type,
		FixedSlotID:     fixedSlotID,
		StartDate:       now,
		EndDate:         now.AddDate(0, pending.Months, 0),
		Status:          domain.MonthlyValid,
		PackageMonths:   pending.Months,
		AmountPaid:      pending.Amount,
		DiscountPercent: pending.DiscountPercent,
		CustomerName:    pending.CustomerName,
		CustomerEmail:   pending.CustomerEmail,
		CustomerPhone:   pending.CustomerPhone,
	}
	created, err := s.monthlyRepo.Create(ctx, mv)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo đăng ký tháng: %w", err)
	}

	log.Printf("MonthlyVehicleService: đã kích hoạt xe tháng %s (biển %s, chỗ %s, hết hạn %s)",
		created.VehicleID, created.LicensePlate, created.FixedSlotID.ValueOrZero(), created.EndDate.Format("02/01/2006"))
	if s.email != nil {
		s.email.SendRegistrationConfirmation(ctx, created)
	}
	return created, nil
}

// reserveFixedSlot giữ chỗ cố định bằng ghi có điều kiện AVAILABLE -> RESERVED.
// Ứng viên bị giành mất thì tìm ứng viên khác; hết sạch thì đăng ký vẫn được
// kích hoạt nhưng không có chỗ cố định.
func (s *MonthlyVehicleService) reserveFixedSlot(ctx context.Context, vehicleType domain.VehicleType, candidate null.String) null.String {
	tryReserve := func(slotID string) bool {
		err := s.slotRepo.UpdateStatusIf(ctx, slotID,
			[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotReserved, null.String{})
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			log.Printf("MonthlyVehicleService: lỗi giữ chỗ %s: %v", slotID, err)
		}
		return err == nil
	}

	if candidate.Valid && tryReserve(candidate.String) {
		return candidate
	}
	for attempt := 0; attempt < maxAllocateRounds; attempt++ {
		slot, err := s.FindAvailableFixedSlot(ctx, vehicleType)
		if err != nil {
			break
		}
		if tryReserve(slot.SlotID) {
			return null.StringFrom(slot.SlotID)
		}
	}
	log.Printf("MonthlyVehicleService: không giữ được chỗ cố định loại %s, đăng ký không có chỗ cố định", vehicleType)
	return null.String{}
}

// CompletePending hoàn tất một bản ghi chờ theo đúng loại của nó, dùng cho
// callback thanh toán không biết trước là đăng ký mới hay gia hạn.
func (s *MonthlyVehicleService) CompletePending(ctx context.Context, pendingID, transactionID string) (*domain.MonthlyVehicle, error) {
	pending, err := s.pendingRepo.FindByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if pending.Kind == domain.KindRenewal {
		return s.CompleteRenewal(ctx, pendingID, transactionID)
	}
	return s.CompleteRegistration(ctx, pendingID, transactionID)
}

// CreatePendingRenewal mở một yêu cầu gia hạn chờ thanh toán.
func (s *MonthlyVehicleService) CreatePendingRenewal(ctx context.Context, monthlyVehicleID string, dto domain.RenewMonthlyDTO) (*domain.PendingRegistration, error) {
	mv, err := s.monthlyRepo.FindByID(ctx, monthlyVehicleID)
	if err != nil {
		return nil, err
	}
	if mv.Status == domain.MonthlyCancelled {
		return nil, fmt.Errorf("%w: đăng ký %s đã hủy, không thể gia hạn", repository.ErrInvalidInput, monthlyVehicleID)
	}

	quote, err := s.feeService.MonthlyQuote(ctx, mv.Type, dto.Months)
	if err != nil {
		return nil, err
	}

	pending := &domain.PendingRegistration{
		ID:               uuid.NewString(),
		Kind:             domain.KindRenewal,
		MonthlyVehicleID: null.StringFrom(mv.VehicleID),
		LicensePlate:     mv.LicensePlate,
		Type:             mv.Type,
		Months:           dto.Months,
		Amount:           quote.FinalAmount,
		DiscountPercent:  quote.DiscountPercent,
		CustomerName:     mv.CustomerName,
		CustomerEmail:    mv.CustomerEmail,
		CustomerPhone:    mv.CustomerPhone,
		Status:           domain.PendingOpen,
	}
	created, err := s.pendingRepo.Create(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo yêu cầu gia hạn: %w", err)
	}
	return created, nil
}

// CompleteRenewal áp dụng gia hạn sau khi thanh toán thành công.
func (s *MonthlyVehicleService) CompleteRenewal(ctx context.Context, pendingID, transactionID string) (*domain.MonthlyVehicle, error) {
	pending, err := s.pendingRepo.FindByID(ctx, pendingID)
	if err != nil {
		return nil, err
	}
	if pending.Kind != domain.KindRenewal || !pending.MonthlyVehicleID.Valid {
		return nil, fmt.Errorf("%w: bản ghi chờ %s không phải gia hạn", repository.ErrInvalidInput, pendingID)
	}

	if err := s.pendingRepo.CompleteOnce(ctx, pendingID, transactionID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			if mv, findErr := s.monthlyRepo.FindByID(ctx, pending.MonthlyVehicleID.String); findErr == nil {
				log.Printf("MonthlyVehicleService: gia hạn %s đã hoàn tất trước đó", pendingID)
				return mv, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrPendingAlreadyCompleted, pendingID)
		}
		return nil, err
	}

	return s.Renew(ctx, pending.MonthlyVehicleID.String, pending.Months, pending.Amount, pending.DiscountPercent)
}

// Renew gia hạn đăng ký: hạn mới tính từ thời điểm muộn hơn giữa bây giờ và
// hạn hiện tại, nên gia hạn sớm không mất ngày. Đăng ký đã EXPIRED hoặc mất
// chỗ cố định được cấp lại chỗ mới.
func (s *MonthlyVehicleService) Renew(ctx context.Context, monthlyVehicleID string, months int, amount, discountPercent float64) (*domain.MonthlyVehicle, error) {
	if months < 1 {
		return nil, fmt.Errorf("%w: số tháng phải lớn hơn 0", repository.ErrInvalidInput)
	}
	mv, err := s.monthlyRepo.FindByID(ctx, monthlyVehicleID)
	if err != nil {
		return nil, err
	}
	if mv.Status == domain.MonthlyCancelled {
		return nil, fmt.Errorf("%w: đăng ký %s đã hủy", repository.ErrInvalidInput, monthlyVehicleID)
	}

	now := time.Now().UTC()
	base := mv.EndDate
	if now.After(base) {
		base = now
	}

	if mv.Status != domain.MonthlyValid || !mv.FixedSlotID.Valid {
		mv.FixedSlotID = s.reserveFixedSlot(ctx, mv.Type, null.String{})
	}

	mv.EndDate = base.AddDate(0, months, 0)
	mv.Status = domain.MonthlyValid
	mv.PackageMonths = months
	mv.AmountPaid += amount
	mv.DiscountPercent = discountPercent
	mv.LastRenewalDate = null.TimeFrom(now)

	updated, err := s.monthlyRepo.Update(ctx, mv)
	if err != nil {
		return nil, fmt.Errorf("lỗi gia hạn đăng ký tháng: %w", err)
	}
	log.Printf("MonthlyVehicleService: đã gia hạn %s thêm %d tháng, hết hạn mới %s",
		updated.VehicleID, months, updated.EndDate.Format("02/01/2006"))
	if s.email != nil {
		s.email.SendRenewalConfirmation(ctx, updated)
	}
	return updated, nil
}

// Cancel hủy đăng ký và trả chỗ cố định về AVAILABLE ngay lập tức,
// kể cả khi xe của đăng ký này còn đang đỗ ở đó.
func (s *MonthlyVehicleService) Cancel(ctx context.Context, monthlyVehicleID string) (*domain.MonthlyVehicle, error) {
	mv, err := s.monthlyRepo.FindByID(ctx, monthlyVehicleID)
	if err != nil {
		return nil, err
	}
	if mv.Status == domain.MonthlyCancelled {
		return mv, nil
	}

	releasedSlot := mv.FixedSlotID
	mv.Status = domain.MonthlyCancelled
	mv.FixedSlotID = null.String{}
	updated, err := s.monthlyRepo.Update(ctx, mv)
	if err != nil {
		return nil, fmt.Errorf("lỗi hủy đăng ký tháng: %w", err)
	}

	if releasedSlot.Valid {
		if err := s.slotRepo.UpdateStatus(ctx, releasedSlot.String, domain.SlotAvailable, null.String{}); err != nil {
			log.Printf("MonthlyVehicleService: lỗi trả chỗ cố định %s khi hủy %s: %v", releasedSlot.String, monthlyVehicleID, err)
		}
	}

	log.Printf("MonthlyVehicleService: đã hủy đăng ký %s, trả chỗ %s", updated.VehicleID, releasedSlot.ValueOrZero())
	if s.email != nil {
		s.email.SendCancellationNotice(ctx, updated)
	}
	return updated, nil
}

// SweepExpirations chạy định kỳ: gửi mail nhắc các đăng ký sắp hết hạn trong
// 3 ngày và chuyển các đăng ký đã quá hạn sang EXPIRED. Chỗ cố định đang có
// xe đỗ không bị thu hồi ngay mà chờ đến lúc xe ra.
func (s *MonthlyVehicleService) SweepExpirations(ctx context.Context, now time.Time) error {
	expiring, err := s.monthlyRepo.FindValidEndingBetween(ctx, now, now.Add(expirationReminderWindow))
	if err != nil {
		return fmt.Errorf("lỗi tìm đăng ký sắp hết hạn: %w", err)
	}
	for i := range expiring {
		if s.email == nil {
			break
		}
		if err := s.email.SendExpirationReminder(ctx, &expiring[i]); err != nil {
			log.Printf("MonthlyVehicleService: lỗi gửi mail nhắc hết hạn cho %s: %v", expiring[i].VehicleID, err)
		}
	}

	expired, err := s.monthlyRepo.FindValidEndedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("lỗi tìm đăng ký quá hạn: %w", err)
	}
	for i := range expired {
		mv := &expired[i]
		mv.Status = domain.MonthlyExpired
		if _, err := s.monthlyRepo.Update(ctx, mv); err != nil {
			log.Printf("MonthlyVehicleService: lỗi chuyển %s sang EXPIRED: %v", mv.VehicleID, err)
			continue
		}
		if mv.FixedSlotID.Valid {
			err := s.slotRepo.UpdateStatusIf(ctx, mv.FixedSlotID.String,
				[]domain.SlotStatus{domain.SlotReserved}, domain.SlotAvailable, null.String{})
			if errors.Is(err, repository.ErrConflict) {
				// Xe còn trong bãi, chỗ sẽ về AVAILABLE khi xe ra
				log.Printf("MonthlyVehicleService: chỗ %s của %s đang có xe, sẽ thu hồi khi xe ra", mv.FixedSlotID.String, mv.VehicleID)
			} else if err != nil {
				log.Printf("MonthlyVehicleService: lỗi thu hồi chỗ %s: %v", mv.FixedSlotID.String, err)
			}
		}
		if s.email != nil {
			s.email.SendExpirationNotice(ctx, mv)
		}
		log.Printf("MonthlyVehicleService: đăng ký %s đã hết hạn", mv.VehicleID)
	}
	return nil
}

func (s *MonthlyVehicleService) GetByID(ctx context.Context, monthlyVehicleID string) (*domain.MonthlyVehicle, error) {
	return s.monthlyRepo.FindByID(ctx, monthlyVehicleID)
}

func (s *MonthlyVehicleService) Find(ctx context.Context, filter domain.MonthlyVehicleFilterDTO) ([]domain.MonthlyVehicle, error) {
	return s.monthlyRepo.Find(ctx, filter)
}

func (s *MonthlyVehicleService) CalculatePackagePrice(ctx context.Context, vehicleType domain.VehicleType, months int) (*domain.PackageQuoteDTO, error) {
	return s.feeService.MonthlyQuote(ctx, vehicleType, months)
}
