package service

import (
	"context"
	"testing"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

type parkingFixture struct {
	svc         *ParkingService
	slotSvc     *SlotService
	monthlySvc  *MonthlyVehicleService
	txSvc       *TransactionService
	slotRepo    *fakeSlotRepo
	vehicleRepo *fakeVehicleRepo
	monthlyRepo *fakeMonthlyRepo
	txRepo      *fakeTransactionRepo
}

func newParkingFixture(t *testing.T, motorbikeSlots, carSlots int) *parkingFixture {
	t.Helper()
	slotRepo := newFakeSlotRepo()
	vehicleRepo := newFakeVehicleRepo()
	monthlyRepo := newFakeMonthlyRepo()
	txRepo := newFakeTransactionRepo()
	settingsRepo := newFakeSettingsRepo()
	idGen := NewIDGeneratorService(newFakeSequenceRepo())

	feeSvc := NewFeeService(settingsRepo)
	slotSvc := NewSlotService(slotRepo, vehicleRepo, settingsRepo)
	require.NoError(t, slotSvc.InitializeParkingSlots(context.Background(), motorbikeSlots, carSlots))
	txSvc := NewTransactionService(txRepo, idGen)
	monthlySvc := NewMonthlyVehicleService(monthlyRepo, newFakePendingRepo(), slotRepo, feeSvc, idGen, nil)
	svc := NewParkingService(slotSvc, vehicleRepo, monthlyRepo, idGen, feeSvc, txSvc, nil)

	return &parkingFixture{
		svc:         svc,
		slotSvc:     slotSvc,
		monthlySvc:  monthlySvc,
		txSvc:       txSvc,
		slotRepo:    slotRepo,
		vehicleRepo: vehicleRepo,
		monthlyRepo: monthlyRepo,
		txRepo:      txRepo,
	}
}

func (f *parkingFixture) addMonthly(t *testing.T, plate, slotID string, endDate time.Time) *domain.MonthlyVehicle {
	t.Helper()
	ctx := context.Background()
	if slotID != "" {
		require.NoError(t, f.slotRepo.UpdateStatusIf(ctx, slotID,
			[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotReserved, null.String{}))
	}
	mv := &domain.MonthlyVehicle{
		VehicleID:    "MC001",
		LicensePlate: plate,
		Type:         domain.VehicleCar,
		StartDate:    time.Now().UTC().AddDate(0, -1, 0),
		EndDate:      endDate,
		Status:       domain.MonthlyValid,
	}
	if slotID != "" {
		mv.FixedSlotID = null.StringFrom(slotID)
	}
	created, err := f.monthlyRepo.Create(ctx, mv)
	require.NoError(t, err)
	return created
}

func TestCheckIn_XeVangLaiDuocCapChoVaID(t *testing.T) {
	f := newParkingFixture(t, 2, 1)

	result, err := f.svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		LicensePlate: "51f - 12 345",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)
	assert.Equal(t, "C001", result.Vehicle.VehicleID)
	assert.Equal(t, "51F-12345", result.Vehicle.LicensePlate)
	assert.Equal(t, "C001", result.Slot.SlotID)
	assert.Equal(t, domain.SlotOccupied, result.Slot.Status)
	assert.False(t, result.Vehicle.IsMonthly)
}

func TestCheckIn_XeDangTrongBaiBiTuChoi(t *testing.T) {
	f := newParkingFixture(t, 2, 0)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-1234",
		VehicleType:  string(domain.VehicleMotorbike),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-1234",
		VehicleType:  string(domain.VehicleMotorbike),
	})
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)
}

func TestCheckIn_XeThangVaoDungChoCoDinh(t *testing.T) {
	f := newParkingFixture(t, 0, 2)
	f.addMonthly(t, "51F-99999", "C002", time.Now().UTC().AddDate(0, 1, 0))

	result, err := f.svc.CheckIn(context.Background(), domain.VehicleCheckInDTO{
		LicensePlate: "51F-99999",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)
	assert.Equal(t, "MC001", result.Vehicle.VehicleID)
	assert.True(t, result.Vehicle.IsMonthly)
	assert.Equal(t, "C002", result.Slot.SlotID)
	assert.Equal(t, domain.SlotOccupied, result.Slot.Status)
}

func TestCheckIn_ChoCoDinhBiChiemThiDungChoThuong(t *testing.T) {
	f := newParkingFixture(t, 0, 2)
	ctx := context.Background()
	f.addMonthly(t, "51F-99999", "C002", time.Now().UTC().AddDate(0, 1, 0))

	// Chỗ cố định đã có xe khác đỗ nhầm
	require.NoError(t, f.slotRepo.UpdateStatusIf(ctx, "C002",
		[]domain.SlotStatus{domain.SlotReserved}, domain.SlotOccupied, null.StringFrom("C999")))

	result, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-99999",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)
	assert.Equal(t, "C001", result.Slot.SlotID)
}

func TestCheckOut_XeVangLaiTinhPhiVaTraCho(t *testing.T) {
	f := newParkingFixture(t, 0, 1)
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-12345",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)

	result, err := f.svc.CheckOut(ctx, domain.VehicleCheckOutDTO{LicensePlate: "51F-12345"})
	require.NoError(t, err)
	assert.Equal(t, float64(30000), result.Fee)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, domain.TxCompleted, result.Transaction.Status)
	assert.Equal(t, domain.TxParkingFee, result.Transaction.Type)

	slot, err := f.slotRepo.FindByID(ctx, "C001")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
}

func TestCheckOut_GoiLaiKhongNhanDoiPhi(t *testing.T) {
	f := newParkingFixture(t, 0, 1)
	ctx := context.Background()

	checkedIn, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-12345",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckOut(ctx, domain.VehicleCheckOutDTO{LicensePlate: "51F-12345"})
	require.NoError(t, err)

	// Check-out lần hai của cùng lượt gửi bị từ chối
	_, err = f.svc.CheckOut(ctx, domain.VehicleCheckOutDTO{VehicleID: checkedIn.Vehicle.VehicleID})
	assert.ErrorIs(t, err, ErrVehicleNotParked)

	all, err := f.txSvc.Find(ctx, domain.TransactionFilterDTO{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCheckOut_XeThangTraChoVeRESERVED(t *testing.T) {
	f := newParkingFixture(t, 0, 2)
	ctx := context.Background()
	f.addMonthly(t, "51F-99999", "C002", time.Now().UTC().AddDate(0, 1, 0))

	_, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-99999",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)

	result, err := f.svc.CheckOut(ctx, domain.VehicleCheckOutDTO{LicensePlate: "51F-99999"})
	require.NoError(t, err)
	// Xe tháng không bị thu phí lượt
	assert.Equal(t, float64(0), result.Fee)
	assert.Nil(t, result.Transaction)

	slot, err := f.slotRepo.FindByID(ctx, "C002")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotReserved, slot.Status)
}

func TestCheckOut_DangKyHetHanTrongLucDoThiChoVeAVAILABLE(t *testing.T) {
	f := newParkingFixture(t, 0, 2)
	ctx := context.Background()
	mv := f.addMonthly(t, "51F-99999", "C002", time.Now().UTC().Add(time.Hour))

	_, err := f.svc.CheckIn(ctx, domain.VehicleCheckInDTO{
		LicensePlate: "51F-99999",
		VehicleType:  string(domain.VehicleCar),
	})
	require.NoError(t, err)

	// Đăng ký hết hạn trong lúc xe còn trong bãi: chỗ cố định chưa thu hồi được
	require.NoError(t, f.monthlySvc.SweepExpirations(ctx, time.Now().UTC().Add(2*time.Hour)))
	updated, err := f.monthlyRepo.FindByID(ctx, mv.VehicleID)
	require.NoError(t, err)
	assert.Equal(t, domain.MonthlyExpired, updated.Status)

	slot, err := f.slotRepo.FindByID(ctx, "C002")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupied, slot.Status)

	// Xe ra: đăng ký không còn VALID nên chỗ về AVAILABLE
	_, err = f.svc.CheckOut(ctx, domain.VehicleCheckOutDTO{LicensePlate: "51F-99999"})
	require.NoError(t, err)

	slot, err = f.slotRepo.FindByID(ctx, "C002")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, slot.Status)
}

func TestCheckOut_XeKhongTrongBai(t *testing.T) {
	f := newParkingFixture(t, 1, 0)

	_, err := f.svc.CheckOut(context.Background(), domain.VehicleCheckOutDTO{LicensePlate: "51F-0000"})
	assert.ErrorIs(t, err, ErrVehicleNotParked)

	_, err = f.svc.CheckOut(context.Background(), domain.VehicleCheckOutDTO{})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}
