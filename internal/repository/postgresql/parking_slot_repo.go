package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/lib/pq"
	"gopkg.in/guregu/null.v4"
)

type pgParkingSlotRepository struct {
	db *sql.DB
}

func NewPgParkingSlotRepository(db *sql.DB) repository.ParkingSlotRepository {
	return &pgParkingSlotRepository{db: db}
}

const slotColumns = `slot_id, type, status, current_vehicle_id, created_at, updated_at`

func scanSlot(row interface{ Scan(...interface{}) error }) (*domain.ParkingSlot, error) {
	slot := &domain.ParkingSlot{}
	var currentVehicle sql.NullString
	err := row.Scan(&slot.SlotID, &slot.Type, &slot.Status, &currentVehicle, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if currentVehicle.Valid {
		slot.CurrentVehicleID = null.StringFrom(currentVehicle.String)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgParkingSlotRepository) Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	query := `INSERT INTO parking_slots (slot_id, type, status, created_at, updated_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, slot.SlotID, slot.Type, slot.Status).Scan(&slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.SlotID)
		}
		return nil, fmt.Errorf("ParkingSlotRepository.Create: %w", err)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgParkingSlotRepository) CreateBatch(ctx context.Context, slots []domain.ParkingSlot) error {
	if len(slots) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.CreateBatch (begin tx): %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO parking_slots (slot_id, type, status, created_at, updated_at)
	           VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.CreateBatch (prepare): %w", err)
	}
	defer stmt.Close()

	for _, slot := range slots {
		if _, err := stmt.ExecContext(ctx, slot.SlotID, slot.Type, slot.Status); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				return fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.SlotID)
			}
			return fmt.Errorf("ParkingSlotRepository.CreateBatch (insert %s): %w", slot.SlotID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingSlotRepository.CreateBatch (commit): %w", err)
	}
	return nil
}

func (r *pgParkingSlotRepository) FindByID(ctx context.Context, slotID string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE slot_id = $1`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) FindAll(ctx context.Context) ([]domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots ORDER BY type, slot_id`
	return r.querySlots(ctx, "FindAll", query)
}

func (r *pgParkingSlotRepository) FindByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE type = $1 ORDER BY slot_id`
	return r.querySlots(ctx, "FindByType", query, vehicleType)
}

func (r *pgParkingSlotRepository) FindAvailableByType(ctx context.Context, vehicleType domain.VehicleType) ([]domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots
	           WHERE type = $1 AND status = $2
	           ORDER BY slot_id ASC`
	return r.querySlots(ctx, "FindAvailableByType", query, vehicleType, domain.SlotAvailable)
}

func (r *pgParkingSlotRepository) querySlots(ctx context.Context, op string, query string, args ...interface{}) ([]domain.ParkingSlot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var slots []domain.ParkingSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSlotRepository.%s (scanning row): %w", op, err)
		}
		slots = append(slots, *slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.%s (rows error): %w", op, err)
	}
	return slots, nil
}

// UpdateStatusIf là thao tác ghi có điều kiện: chỉ thành công khi trạng thái
// hiện tại của slot nằm trong from. Đây là cơ sở cho việc giành slot an toàn
// khi nhiều xe vào cùng lúc.
func (r *pgParkingSlotRepository) UpdateStatusIf(ctx context.Context, slotID string, from []domain.SlotStatus, to domain.SlotStatus, vehicleID null.String) error {
	fromStatuses := make([]string, len(from))
	for i, s := range from {
		fromStatuses[i] = string(s)
	}
	query := `UPDATE parking_slots
	           SET status = $1, current_vehicle_id = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE slot_id = $3 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, to, vehicleID, slotID, pq.Array(fromStatuses))
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatusIf: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatusIf (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *pgParkingSlotRepository) UpdateStatus(ctx context.Context, slotID string, to domain.SlotStatus, vehicleID null.String) error {
	query := `UPDATE parking_slots
	           SET status = $1, current_vehicle_id = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE slot_id = $3`
	result, err := r.db.ExecContext(ctx, query, to, vehicleID, slotID)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSlotRepository) DeleteIfNotOccupied(ctx context.Context, slotIDs []string) (int64, error) {
	if len(slotIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM parking_slots WHERE slot_id = ANY($1) AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, pq.Array(slotIDs), domain.SlotOccupied)
	if err != nil {
		return 0, fmt.Errorf("ParkingSlotRepository.DeleteIfNotOccupied: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ParkingSlotRepository.DeleteIfNotOccupied (checking rows affected): %w", err)
	}
	return rowsAffected, nil
}

func (r *pgParkingSlotRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM parking_slots`)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.DeleteAll: %w", err)
	}
	return nil
}

func (r *pgParkingSlotRepository) CountByStatus(ctx context.Context, vehicleType domain.VehicleType, status domain.SlotStatus) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM parking_slots WHERE type = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, vehicleType, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ParkingSlotRepository.CountByStatus: %w", err)
	}
	return count, nil
}
