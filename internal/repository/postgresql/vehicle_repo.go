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

type pgVehicleRepository struct {
	db *sql.DB
}

func NewPgVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

const vehicleColumns = `vehicle_id, license_plate, type, status, slot_id, is_monthly, entry_time, exit_time, created_at, updated_at`

func scanVehicle(row interface{ Scan(...interface{}) error }) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	var exitTime sql.NullTime
	err := row.Scan(&v.VehicleID, &v.LicensePlate, &v.Type, &v.Status, &v.SlotID, &v.IsMonthly,
		&v.EntryTime, &exitTime, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if exitTime.Valid {
		v.ExitTime = null.TimeFrom(exitTime.Time.In(time.UTC))
	}
	v.EntryTime = v.EntryTime.In(time.UTC)
	v.CreatedAt = v.CreatedAt.In(time.UTC)
	v.UpdatedAt = v.UpdatedAt.In(time.UTC)
	return v, nil
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (vehicle_id, license_plate, type, status, slot_id, is_monthly, entry_time, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		vehicle.VehicleID, vehicle.LicensePlate, vehicle.Type, vehicle.Status,
		vehicle.SlotID, vehicle.IsMonthly, vehicle.EntryTime,
	).Scan(&vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			// Index duy nhất trên (license_plate) WHERE status = 'PARKED' chặn biển số vào hai lần
			return nil, fmt.Errorf("%w: xe với biển số '%s' đang trong bãi", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE vehicle_id = $1
	           ORDER BY entry_time DESC LIMIT 1`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByID: %w", err)
	}
	return v, nil
}

func (r *pgVehicleRepository) FindParkedByPlate(ctx context.Context, licensePlate string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE license_plate = $1 AND status = $2`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, licensePlate, domain.VehicleParked))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindParkedByPlate: %w", err)
	}
	return v, nil
}

func (r *pgVehicleRepository) FindParked(ctx context.Context) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE status = $1 ORDER BY entry_time DESC`
	rows, err := r.db.QueryContext(ctx, query, domain.VehicleParked)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindParked: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindParked (scanning row): %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindParked (rows error): %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `UPDATE vehicles
	           SET status = $1, slot_id = $2, exit_time = $3, updated_at = CURRENT_TIMESTAMP
	           WHERE vehicle_id = $4 AND status = $5
	           RETURNING updated_at`
	var exitTime sql.NullTime
	if vehicle.ExitTime.Valid {
		exitTime = sql.NullTime{Time: vehicle.ExitTime.Time, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, query,
		vehicle.Status, vehicle.SlotID, exitTime, vehicle.VehicleID, domain.VehicleParked,
	).Scan(&vehicle.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.Update: %w", err)
	}
	vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) CountParked(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE status = $1`, domain.VehicleParked).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("VehicleRepository.CountParked: %w", err)
	}
	return count, nil
}
