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

type pgMonthlyVehicleRepository struct {
	db *sql.DB
}

func NewPgMonthlyVehicleRepository(db *sql.DB) repository.MonthlyVehicleRepository {
	return &pgMonthlyVehicleRepository{db: db}
}

const monthlyColumns = `vehicle_id, license_plate, type, fixed_slot_id, start_date, end_date, status,
	package_months, amount_paid, discount_percent, customer_name, customer_email, customer_phone,
	last_renewal_date, created_at, updated_at`

func scanMonthly(row interface{ Scan(...interface{}) error }) (*domain.MonthlyVehicle, error) {
	mv := &domain.MonthlyVehicle{}
	var fixedSlot sql.NullString
	var lastRenewal sql.NullTime
	err := row.Scan(&mv.VehicleID, &mv.LicensePlate, &mv.Type, &fixedSlot, &mv.StartDate, &mv.EndDate, &mv.Status,
		&mv.PackageMonths, &mv.AmountPaid, &mv.DiscountPercent, &mv.CustomerName, &mv.CustomerEmail, &mv.CustomerPhone,
		&lastRenewal, &mv.CreatedAt, &mv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fixedSlot.Valid {
		mv.FixedSlotID = null.StringFrom(fixedSlot.String)
	}
	if lastRenewal.Valid {
		mv.LastRenewalDate = null.TimeFrom(lastRenewal.Time.In(time.UTC))
	}
	mv.StartDate = mv.StartDate.In(time.UTC)
	mv.EndDate = mv.EndDate.In(time.UTC)
	mv.CreatedAt = mv.CreatedAt.In(time.UTC)
	mv.UpdatedAt = mv.UpdatedAt.In(time.UTC)
	return mv, nil
}

func (r *pgMonthlyVehicleRepository) Create(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error) {
	query := `INSERT INTO monthly_vehicles (vehicle_id, license_plate, type, fixed_slot_id, start_date, end_date, status,
	            package_months, amount_paid, discount_percent, customer_name, customer_email, customer_phone, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		mv.VehicleID, mv.LicensePlate, mv.Type, mv.FixedSlotID, mv.StartDate, mv.EndDate, mv.Status,
		mv.PackageMonths, mv.AmountPaid, mv.DiscountPercent, mv.CustomerName, mv.CustomerEmail, mv.CustomerPhone,
	).Scan(&mv.CreatedAt, &mv.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			// Index duy nhất trên (license_plate) WHERE status = 'VALID'
			return nil, fmt.Errorf("%w: biển số '%s' đã có đăng ký tháng còn hiệu lực", repository.ErrDuplicateEntry, mv.LicensePlate)
		}
		return nil, fmt.Errorf("MonthlyVehicleRepository.Create: %w", err)
	}
	mv.CreatedAt = mv.CreatedAt.In(time.UTC)
	mv.UpdatedAt = mv.UpdatedAt.In(time.UTC)
	return mv, nil
}

func (r *pgMonthlyVehicleRepository) FindByID(ctx context.Context, vehicleID string) (*domain.MonthlyVehicle, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_vehicles WHERE vehicle_id = $1`
	mv, err := scanMonthly(r.db.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindByID: %w", err)
	}
	return mv, nil
}

func (r *pgMonthlyVehicleRepository) FindValidByPlate(ctx context.Context, licensePlate string) (*domain.MonthlyVehicle, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_vehicles WHERE license_plate = $1 AND status = $2`
	mv, err := scanMonthly(r.db.QueryRowContext(ctx, query, licensePlate, domain.MonthlyValid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindValidByPlate: %w", err)
	}
	return mv, nil
}

func (r *pgMonthlyVehicleRepository) Find(ctx context.Context, filter domain.MonthlyVehicleFilterDTO) ([]domain.MonthlyVehicle, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_vehicles WHERE 1=1`
	var args []interface{}
	argIdx := 1
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, *filter.Type)
		argIdx++
	}
	if filter.Plate != nil {
		query += fmt.Sprintf(" AND license_plate = $%d", argIdx)
		args = append(args, *filter.Plate)
		argIdx++
	}
	query += " ORDER BY vehicle_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.Find: %w", err)
	}
	defer rows.Close()
	return collectMonthly(rows, "Find")
}

func collectMonthly(rows *sql.Rows, op string) ([]domain.MonthlyVehicle, error) {
	var result []domain.MonthlyVehicle
	for rows.Next() {
		mv, err := scanMonthly(rows)
		if err != nil {
			return nil, fmt.Errorf("MonthlyVehicleRepository.%s (scanning row): %w", op, err)
		}
		result = append(result, *mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.%s (rows error): %w", op, err)
	}
	return result, nil
}

func (r *pgMonthlyVehicleRepository) Update(ctx context.Context, mv *domain.MonthlyVehicle) (*domain.MonthlyVehicle, error) {
	query := `UPDATE monthly_vehicles
	           SET fixed_slot_id = $1, start_date = $2, end_date = $3, status = $4, package_months = $5,
	               amount_paid = $6, discount_percent = $7, last_renewal_date = $8, updated_at = CURRENT_TIMESTAMP
	           WHERE vehicle_id = $9
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		mv.FixedSlotID, mv.StartDate, mv.EndDate, mv.Status, mv.PackageMonths,
		mv.AmountPaid, mv.DiscountPercent, mv.LastRenewalDate, mv.VehicleID,
	).Scan(&mv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("MonthlyVehicleRepository.Update: %w", err)
	}
	mv.UpdatedAt = mv.UpdatedAt.In(time.UTC)
	return mv, nil
}

func (r *pgMonthlyVehicleRepository) FindValidEndingBetween(ctx context.Context, from, to time.Time) ([]domain.MonthlyVehicle, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_vehicles
	           WHERE status = $1 AND end_date > $2 AND end_date <= $3
	           ORDER BY end_date`
	rows, err := r.db.QueryContext(ctx, query, domain.MonthlyValid, from, to)
	if err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindValidEndingBetween: %w", err)
	}
	defer rows.Close()
	return collectMonthly(rows, "FindValidEndingBetween")
}

func (r *pgMonthlyVehicleRepository) FindValidEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.MonthlyVehicle, error) {
	query := `SELECT ` + monthlyColumns + ` FROM monthly_vehicles
	           WHERE status = $1 AND end_date < $2
	           ORDER BY end_date`
	rows, err := r.db.QueryContext(ctx, query, domain.MonthlyValid, cutoff)
	if err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindValidEndedBefore: %w", err)
	}
	defer rows.Close()
	return collectMonthly(rows, "FindValidEndedBefore")
}

func (r *pgMonthlyVehicleRepository) FindFixedSlotIDsInUse(ctx context.Context) ([]string, error) {
	query := `SELECT fixed_slot_id FROM monthly_vehicles WHERE status = $1 AND fixed_slot_id IS NOT NULL`
	rows, err := r.db.QueryContext(ctx, query, domain.MonthlyValid)
	if err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindFixedSlotIDsInUse: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("MonthlyVehicleRepository.FindFixedSlotIDsInUse (scanning row): %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("MonthlyVehicleRepository.FindFixedSlotIDsInUse (rows error): %w", err)
	}
	return ids, nil
}
