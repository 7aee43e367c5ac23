package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"gopkg.in/guregu/null.v4"
)

// Các fake repository trong bộ nhớ dùng chung cho test của package service.
// Mọi thao tác có điều kiện (UpdateStatusIf, UpdateWithVersion, CompleteOnce)
// được thực hiện dưới mutex để giữ đúng ngữ nghĩa ghi nguyên tử của Postgres.

type fakeSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeSequenceRepo() *fakeSequenceRepo {
	return &fakeSequenceRepo{counters: make(map[string]int)}
}

func (r *fakeSequenceRepo) Next(ctx context.Context, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name]++
	return r.counters[name], nil
}

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*domain.ParkingSlot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[string]*domain.ParkingSlot)}
}

func (r *fakeSlotRepo) Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.SlotID]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	cp := *slot
	r.slots[slot.SlotID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeSlotRepo) CreateBatch(ctx context.Context, slots []domain.ParkingSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, slot := range slots {
		if _, ok := r.slots[slot.SlotID]; ok {
			return repository.ErrDuplicateEntry
		}
	}
	for _, slot := range slots {
		cp := slot
		r.slots[slot.SlotID] = &cp
	}
	return nil
}

func (r *fakeSlotRepo) FindByID(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeSlotRepo) sortedLocked(filter func(*domain.ParkingSlot) bool) []domain.ParkingSlot {
	var out []domain.ParkingSlot
	for _, slot := range r.slots {
		if filter == nil || filter(slot) {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

func (r *fakeSlotRepo) FindAll(ctx context.Context) ([]domain.ParkingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked(nil), nil
}

func (r *fakeSlotRepo) FindByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked(func(s *domain.ParkingSlot) bool { return s.Type == vehicleType }), nil
}

func (r *fakeSlotRepo) FindAvailableByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked(func(s *domain.ParkingSlot) bool {
		return s.Type == vehicleType && s.Status == domain.SlotAvailable
	}), nil
}

func (r *fakeSlotRepo) UpdateStatusIf(ctx context.Context, slotID string, from []domain.SlotStatus,
	to domain.SlotStatus, vehicleID null.String) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, status := range from {
		if slot.Status == status {
			slot.Status = to
			slot.CurrentVehicleID = vehicleID
			return nil
		}
	}
	return repository.ErrConflict
}

func (r *fakeSlotRepo) UpdateStatus(ctx context.Context, slotID string, to domain.SlotStatus, vehicleID null.String) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	slot.Status = to
	slot.CurrentVehicleID = vehicleID
	return nil
}

func (r *fakeSlotRepo) DeleteIfNotOccupied(ctx context.Context, slotIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range slotIDs {
		slot, ok := r.slots[id]
		if !ok || slot.Status == domain.SlotOccupied {
			continue
		}
		delete(r.slots, id)
		deleted++
	}
	return deleted, nil
}

func (r *fakeSlotRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = make(map[string]*domain.ParkingSlot)
	return nil
}

func (r *fakeSlotRepo) CountByStatus(ctx context.Context, vehicleType domain.VehicleType, status domain.SlotStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, slot := range r.slots {
		if slot.Type == vehicleType && slot.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeVehicleRepo struct {
	mu       sync.Mutex
	vehicles []*domain.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{}
}

func (r *fakeVehicleRepo) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vehicles {
		if v.Status == domain.VehicleParked && v.LicensePlate == vehicle.LicensePlate {
			return nil, repository.ErrDuplicateEntry
		}
	}
	cp := *vehicle
	cp.CreatedAt = time.Now().UTC()
	r.vehicles = append(r.vehicles, &cp)
	out := cp
	return &out, nil
}

func (r *fakeVehicleRepo) FindByID(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Vehicle
	for _, v := range r.vehicles {
		if v.VehicleID != vehicleID {
			continue
		}
		if latest == nil || v.EntryTime.After(latest.EntryTime) {
			latest = v
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeVehicleRepo) FindParkedByPlate(ctx context.Context, licensePlate string) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vehicles {
		if v.Status == domain.VehicleParked && v.LicensePlate == licensePlate {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeVehicleRepo) FindParked(ctx context.Context) ([]domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Vehicle
	for _, v := range r.vehicles {
		if v.Status == domain.VehicleParked {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeVehicleRepo) Update(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.vehicles {
		if v.VehicleID == vehicle.VehicleID && v.Status == domain.VehicleParked {
			cp := *vehicle
			r.vehicles[i] = &cp
			out := cp
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeVehicleRepo) CountParked(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, v := range r.vehicles {
		if v.Status == domain.VehicleParked {
			count++
		}
	}
	return count, nil
}

type fakeMonthlyRepo struct {
	mu       sync.Mutex
	vehicles map[string]*domain.MonthlyVehicle
}

func newFakeMonthlyRepo() *fakeMonthlyRepo {
	return &fakeMonthlyRepo{vehicles: make(map[string]*domain.MonthlyVehicle)}
}

func (r *fakeMonthlyRepo) Create(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mv.Status == domain.MonthlyValid {
		for _, existing := range r.vehicles {
			if existing.Status == domain.MonthlyValid && existing.LicensePlate == mv.LicensePlate {
				return nil, repository.ErrDuplicateEntry
			}
		}
	}
	cp := *mv
	r.vehicles[mv.VehicleID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeMonthlyRepo) FindByID(ctx context.Context, vehicleID string) (*domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mv, ok := r.vehicles[vehicleID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *mv
	return &cp, nil
}

func (r *fakeMonthlyRepo) FindValidByPlate(ctx context.Context, licensePlate string) (*domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mv := range r.vehicles {
		if mv.Status == domain.MonthlyValid && mv.LicensePlate == licensePlate {
			cp := *mv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMonthlyRepo) Find(ctx context.Context, filter domain.MonthlyVehicleFilterDTO) ([]domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MonthlyVehicle
	for _, mv := range r.vehicles {
		if filter.Status != nil && string(mv.Status) != *filter.Status {
			continue
		}
		if filter.Type != nil && string(mv.Type) != *filter.Type {
			continue
		}
		if filter.Plate != nil && mv.LicensePlate != *filter.Plate {
			continue
		}
		out = append(out, *mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

func (r *fakeMonthlyRepo) Update(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[mv.VehicleID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *mv
	r.vehicles[mv.VehicleID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeMonthlyRepo) FindValidEndingBetween(ctx context.Context, from, to time.Time) ([]domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MonthlyVehicle
	for _, mv := range r.vehicles {
		if mv.Status == domain.MonthlyValid && mv.EndDate.After(from) && !mv.EndDate.After(to) {
			out = append(out, *mv)
		}
	}
	return out, nil
}

func (r *fakeMonthlyRepo) FindValidEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.MonthlyVehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MonthlyVehicle
	for _, mv := range r.vehicles {
		if mv.Status == domain.MonthlyValid && mv.EndDate.Before(cutoff) {
			out = append(out, *mv)
		}
	}
	return out, nil
}

func (r *fakeMonthlyRepo) FindFixedSlotIDsInUse(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, mv := range r.vehicles {
		if mv.Status == domain.MonthlyValid && mv.FixedSlotID.Valid {
			out = append(out, mv.FixedSlotID.String)
		}
	}
	return out, nil
}

type fakePendingRepo struct {
	mu      sync.Mutex
	pending map[string]*domain.PendingRegistration
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{pending: make(map[string]*domain.PendingRegistration)}
}

func (r *fakePendingRepo) Create(ctx context.Context, p *domain.PendingRegistration) (*domain.PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[p.ID]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	cp := *p
	r.pending[p.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakePendingRepo) FindByID(ctx context.Context, id string) (*domain.PendingRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePendingRepo) CompleteOnce(ctx context.Context, id string, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != domain.PendingOpen {
		return repository.ErrConflict
	}
	p.Status = domain.PendingCompleted
	p.TransactionID = null.StringFrom(transactionID)
	return nil
}

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
	byKey        map[string]string
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{
		transactions: make(map[string]*domain.Transaction),
		byKey:        make(map[string]string),
	}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[tx.IdempotencyKey]; ok {
		return nil, fmt.Errorf("%w: idempotency key '%s' đã được dùng", repository.ErrDuplicateEntry, tx.IdempotencyKey)
	}
	cp := *tx
	cp.CreatedAt = time.Now().UTC()
	r.transactions[tx.TransactionID] = &cp
	r.byKey[tx.IdempotencyKey] = tx.TransactionID
	out := cp
	return &out, nil
}

func (r *fakeTransactionRepo) FindByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *fakeTransactionRepo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.transactions[id]
	return &cp, nil
}

func (r *fakeTransactionRepo) UpdateWithVersion(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.transactions[tx.TransactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.Version != tx.Version {
		return nil, repository.ErrConflict
	}
	cp := *tx
	cp.Version = current.Version + 1
	cp.UpdatedAt = time.Now().UTC()
	r.transactions[tx.TransactionID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeTransactionRepo) Find(ctx context.Context, filter domain.TransactionFilterDTO) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.transactions {
		if filter.Status != nil && string(tx.Status) != *filter.Status {
			continue
		}
		if filter.Type != nil && string(tx.Type) != *filter.Type {
			continue
		}
		if filter.PaymentMethod != nil && string(tx.PaymentMethod) != *filter.PaymentMethod {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

func (r *fakeTransactionRepo) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.Status == domain.TxPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report := &domain.RevenueReport{
		From:            from,
		To:              to,
		ByPaymentMethod: make(map[string]float64),
		ByType:          make(map[string]float64),
	}
	for _, tx := range r.transactions {
		if tx.Status != domain.TxCompleted || tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		report.TotalRevenue += tx.Amount
		report.ByPaymentMethod[string(tx.PaymentMethod)] += tx.Amount
		report.ByType[string(tx.Type)] += tx.Amount
		report.CompletedCount++
	}
	return report, nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings *domain.SystemSettings
	tiers    []domain.DiscountTier
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{}
}

func (r *fakeSettingsRepo) Get(ctx context.Context) (*domain.SystemSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r.settings
	return &cp, nil
}

func (r *fakeSettingsRepo) Save(ctx context.Context, settings *domain.SystemSettings) (*domain.SystemSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *settings
	cp.UpdatedAt = time.Now().UTC()
	r.settings = &cp
	out := cp
	return &out, nil
}

func (r *fakeSettingsRepo) GetDiscountTiers(ctx context.Context) ([]domain.DiscountTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DiscountTier, len(r.tiers))
	copy(out, r.tiers)
	return out, nil
}

func (r *fakeSettingsRepo) ReplaceDiscountTiers(ctx context.Context, tiers []domain.DiscountTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = make([]domain.DiscountTier, len(tiers))
	copy(r.tiers, tiers)
	return nil
}
