package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func newTestSlotService(t *testing.T, motorbikeSlots, carSlots int) (*SlotService, *fakeSlotRepo, *fakeVehicleRepo) {
	t.Helper()
	slotRepo := newFakeSlotRepo()
	vehicleRepo := newFakeVehicleRepo()
	svc := NewSlotService(slotRepo, vehicleRepo, newFakeSettingsRepo())
	require.NoError(t, svc.InitializeParkingSlots(context.Background(), motorbikeSlots, carSlots))
	return svc, slotRepo, vehicleRepo
}

func TestInitializeParkingSlots_DanhSoTheoLoai(t *testing.T) {
	svc, _, _ := newTestSlotService(t, 3, 2)

	slots, err := svc.GetAllSlots(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 5)
	assert.Equal(t, "C001", slots[0].SlotID)
	assert.Equal(t, "C002", slots[1].SlotID)
	assert.Equal(t, "M001", slots[2].SlotID)
	assert.Equal(t, "M003", slots[4].SlotID)
	for _, slot := range slots {
		assert.Equal(t, domain.SlotAvailable, slot.Status)
	}
}

func TestInitializeParkingSlots_KhongTaoLaiKhiDaCo(t *testing.T) {
	svc, _, _ := newTestSlotService(t, 2, 1)

	require.NoError(t, svc.InitializeParkingSlots(context.Background(), 50, 50))
	slots, err := svc.GetAllSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestAllocateSlot_CapTheoThuTuID(t *testing.T) {
	svc, _, _ := newTestSlotService(t, 3, 2)
	ctx := context.Background()

	first, err := svc.AllocateSlot(ctx, domain.VehicleMotorbike, "M001")
	require.NoError(t, err)
	assert.Equal(t, "M001", first.SlotID)

	second, err := svc.AllocateSlot(ctx, domain.VehicleMotorbike, "M002")
	require.NoError(t, err)
	assert.Equal(t, "M002", second.SlotID)

	// Ô tô không chiếm chỗ xe máy
	car, err := svc.AllocateSlot(ctx, domain.VehicleCar, "C001")
	require.NoError(t, err)
	assert.Equal(t, "C001", car.SlotID)
}

func TestAllocateSlot_HetChoTraLoiRo(t *testing.T) {
	svc, _, _ := newTestSlotService(t, 1, 0)
	ctx := context.Background()

	_, err := svc.AllocateSlot(ctx, domain.VehicleMotorbike, "M001")
	require.NoError(t, err)

	_, err = svc.AllocateSlot(ctx, domain.VehicleMotorbike, "M002")
	assert.ErrorIs(t, err, repository.ErrSlotExhausted)
}

func TestAllocateSlot_DongThoiKhongCapTrung(t *testing.T) {
	const slotCount = 10
	svc, slotRepo, _ := newTestSlotService(t, slotCount, 0)
	ctx := context.Background()

	// Gấp đôi số xe so với số chỗ: đúng slotCount xe được cấp, không slot nào
	// bị cấp cho hai xe.
	var wg sync.WaitGroup
	results := make(chan *domain.ParkingSlot, slotCount*2)
	for i := 0; i < slotCount*2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			slot, err := svc.AllocateSlot(ctx, domain.VehicleMotorbike, fmt.Sprintf("M%03d", n))
			if err == nil {
				results <- slot
			} else {
				assert.ErrorIs(t, err, repository.ErrSlotExhausted)
			}
		}(i + 1)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for slot := range results {
		assert.False(t, seen[slot.SlotID], "slot %s bị cấp hai lần", slot.SlotID)
		seen[slot.SlotID] = true
	}
	assert.Len(t, seen, slotCount)

	available, err := slotRepo.FindAvailableByType(ctx, domain.VehicleMotorbike)
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestReleaseSlot_TraVeTrangThaiDich(t *testing.T) {
	svc, slotRepo, _ := newTestSlotService(t, 1, 0)
	ctx := context.Background()

	_, err := svc.AllocateSlot(ctx, domain.VehicleMotorbike, "M001")
	require.NoError(t, err)

	require.NoError(t, svc.ReleaseSlot(ctx, "M001", domain.SlotReserved))
	slot, err := slotRepo.FindByID(ctx, "M001")
	require.NoError(t, err)
	assert.Equal(t, domain.SlotReserved, slot.Status)
	assert.False(t, slot.CurrentVehicleID.Valid)

	// Trả lại slot không OCCUPIED là conflict
	assert.ErrorIs(t, svc.ReleaseSlot(ctx, "M001", domain.SlotAvailable), repository.ErrConflict)
}

func TestAdjustParkingSpaces_ThemVaBot(t *testing.T) {
	svc, _, _ := newTestSlotService(t, 2, 2)
	ctx := context.Background()

	require.NoError(t, svc.AdjustParkingSpaces(ctx, domain.AdjustSpacesDTO{MotorbikeSlots: 4, CarSlots: 1}))

	slots, err := svc.GetAllSlots(ctx)
	require.NoError(t, err)
	var ids []string
	for _, slot := range slots {
		ids = append(ids, slot.SlotID)
	}
	assert.Equal(t, []string{"C001", "M001", "M002", "M003", "M004"}, ids)
}

func TestAdjustParkingSpaces_TuChoiKhiChoBiChiem(t *testing.T) {
	svc, slotRepo, _ := newTestSlotService(t, 3, 0)
	ctx := context.Background()

	// Chiếm slot có chỉ số cao nhất
	require.NoError(t, slotRepo.UpdateStatusIf(ctx, "M003",
		[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotOccupied, null.StringFrom("M001")))

	err := svc.AdjustParkingSpaces(ctx, domain.AdjustSpacesDTO{MotorbikeSlots: 2, CarSlots: 0})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Không slot nào bị xóa khi từ chối
	slots, err := svc.GetAllSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestResetParkingLot_TuChoiKhiConXe(t *testing.T) {
	svc, _, vehicleRepo := newTestSlotService(t, 2, 0)
	ctx := context.Background()

	_, err := vehicleRepo.Create(ctx, &domain.Vehicle{
		VehicleID:    "M001",
		LicensePlate: "51F-1234",
		Type:         domain.VehicleMotorbike,
		Status:       domain.VehicleParked,
		SlotID:       "M001",
		EntryTime:    time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetParkingLot(ctx), repository.ErrConflict)
}

func TestSummary_DemTheoTrangThai(t *testing.T) {
	svc, slotRepo, _ := newTestSlotService(t, 3, 1)
	ctx := context.Background()

	require.NoError(t, slotRepo.UpdateStatusIf(ctx, "M001",
		[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotOccupied, null.StringFrom("M001")))
	require.NoError(t, slotRepo.UpdateStatusIf(ctx, "M002",
		[]domain.SlotStatus{domain.SlotAvailable}, domain.SlotReserved, null.String{}))

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, domain.VehicleMotorbike, summary[0].Type)
	assert.Equal(t, 3, summary[0].Total)
	assert.Equal(t, 1, summary[0].Available)
	assert.Equal(t, 1, summary[0].Reserved)
	assert.Equal(t, 1, summary[0].Occupied)
	assert.Equal(t, 1, summary[1].Total)
}
