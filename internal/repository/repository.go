package repository

import (
	"context"
	"errors"
	"time"

	"smart_parking_core/internal/domain"

	"gopkg.in/guregu/null.v4"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")
var ErrConflict = errors.New("dữ liệu đã bị thay đổi bởi thao tác khác")
var ErrSlotExhausted = errors.New("không còn chỗ đỗ trống cho loại xe này")
var ErrInvalidInput = errors.New("dữ liệu đầu vào không hợp lệ")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// SequenceRepository cấp số thứ tự tăng dần cho các prefix sinh ID (M, C, MM, MC, TRX...).
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int, error)
}

type ParkingSlotRepository interface {
	Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error)
	CreateBatch(ctx context.Context, slots []domain.ParkingSlot) error
	FindByID(ctx context.Context, slotID string) (*domain.ParkingSlot, error)
	FindAll(ctx context.Context) ([]domain.ParkingSlot, error)
	FindByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error)
	// FindAvailableByType trả về các slot AVAILABLE theo thứ tự slot_id tăng dần.
	FindAvailableByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error)
	// UpdateStatusIf chỉ ghi khi trạng thái hiện tại nằm trong from; trả ErrConflict nếu không ghi được.
	UpdateStatusIf(ctx context.Context, slotID string, from []domain.SlotStatus, to domain.SlotStatus, vehicleID null.String) error
	UpdateStatus(ctx context.Context, slotID string, to domain.SlotStatus, vehicleID null.String) error
	// DeleteIfNotOccupied xóa các slot trong danh sách trừ slot đang OCCUPIED, trả về số dòng đã xóa.
	DeleteIfNotOccupied(ctx context.Context, slotIDs []string) (int64, error)
	DeleteAll(ctx context.Context) error
	CountByStatus(ctx context.Context, vehicleType domain.VehicleType, status domain.SlotStatus) (int, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, vehicleID string) (*domain.Vehicle, error)
	FindParkedByPlate(ctx context.Context, licensePlate string) (*domain.Vehicle, error)
	FindParked(ctx context.Context) ([]domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	CountParked(ctx context.Context) (int, error)
}

type MonthlyVehicleRepository interface {
	Create(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error)
	FindByID(ctx context.Context, vehicleID string) (*domain.MonthlyVehicle, error)
	FindValidByPlate(ctx context.Context, licensePlate string) (*domain.MonthlyVehicle, error)
	Find(ctx context.Context, filter domain.MonthlyVehicleFilterDTO) ([]domain.MonthlyVehicle, error)
	Update(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error)
	// FindValidEndingBetween phục vụ gửi mail nhắc hết hạn: VALID với end_date trong (from, to].
	FindValidEndingBetween(ctx context.Context, from, to time.Time) ([]domain.MonthlyVehicle, error)
	FindValidEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.MonthlyVehicle, error)
	FindFixedSlotIDsInUse(ctx context.Context) ([]string, error)
}

type PendingRegistrationRepository interface {
	Create(ctx context.Context, pending *domain.PendingRegistration) (*domain.PendingRegistration, error)
	FindByID(ctx context.Context, id string) (*domain.PendingRegistration, error)
	// CompleteOnce chuyển PENDING -> COMPLETED đúng một lần; gọi lại lần hai trả ErrConflict.
	CompleteOnce(ctx context.Context, id string, transactionID string) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	FindByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	// UpdateWithVersion ghi với điều kiện version khớp; trả ErrConflict khi version đã cũ.
	UpdateWithVersion(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	Find(ctx context.Context, filter domain.TransactionFilterDTO) ([]domain.Transaction, error)
	FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
	Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error)
}

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SystemSettings, error)
	Save(ctx context.Context, settings *domain.SystemSettings) (*domain.SystemSettings, error)
	GetDiscountTiers(ctx context.Context) ([]domain.DiscountTier, error)
	ReplaceDiscountTiers(ctx context.Context, tiers []domain.DiscountTier) error
}
