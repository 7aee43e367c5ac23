package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type pgPendingRegistrationRepository struct {
	db *sql.DB
}

func NewPgPendingRegistrationRepository(db *sql.DB) repository.PendingRegistrationRepository {
	return &pgPendingRegistrationRepository{db: db}
}

const pendingColumns = `id, kind, monthly_vehicle_id, license_plate, type, months, amount, discount_percent,
	candidate_slot_id, customer_name, customer_email, customer_phone, status, transaction_id, created_at, updated_at`

func scanPending(row interface{ Scan(...interface{}) error }) (*domain.PendingRegistration, error) {
	p := &domain.PendingRegistration{}
	var monthlyID, candidateSlot, transactionID sql.NullString
	err := row.Scan(&p.ID, &p.Kind, &monthlyID, &p.LicensePlate, &p.Type, &p.Months, &p.Amount, &p.DiscountPercent,
		&candidateSlot, &p.CustomerName, &p.CustomerEmail, &p.CustomerPhone, &p.Status, &transactionID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if monthlyID.Valid {
		p.MonthlyVehicleID = null.StringFrom(monthlyID.String)
	}
	if candidateSlot.Valid {
		p.CandidateSlotID = null.StringFrom(candidateSlot.String)
	}
	if transactionID.Valid {
		p.TransactionID = null.StringFrom(transactionID.String)
	}
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.UpdatedAt = p.UpdatedAt.In(time.UTC)
	return p, nil
}

func (r *pgPendingRegistrationRepository) Create(ctx context.Context, pending *domain.PendingRegistration) (*domain.PendingRegistration, error) {
	query := `INSERT INTO pending_registrations (id, kind, monthly_vehicle_id, license_plate, type, months, amount,
	            discount_percent, candidate_slot_id, customer_name, customer_email, customer_phone, status, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		pending.ID, pending.Kind, pending.MonthlyVehicleID, pending.LicensePlate, pending.Type, pending.Months,
		pending.Amount, pending.DiscountPercent, pending.CandidateSlotID, pending.CustomerName,
		pending.CustomerEmail, pending.CustomerPhone, pending.Status,
	).Scan(&pending.CreatedAt, &pending.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("PendingRegistrationRepository.Create: %w", err)
	}
	pending.CreatedAt = pending.CreatedAt.In(time.UTC)
	pending.UpdatedAt = pending.UpdatedAt.In(time.UTC)
	return pending, nil
}

func (r *pgPendingRegistrationRepository) FindByID(ctx context.Context, id string) (*domain.PendingRegistration, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_registrations WHERE id = $1`
	p, err := scanPending(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PendingRegistrationRepository.FindByID: %w", err)
	}
	return p, nil
}

// CompleteOnce chỉ chuyển trạng thái khi bản ghi còn PENDING, nên callback
// thanh toán gọi trùng lần hai sẽ nhận ErrConflict thay vì tạo thêm đăng ký.
func (r *pgPendingRegistrationRepository) CompleteOnce(ctx context.Context, id string, transactionID string) error {
	query := `UPDATE pending_registrations
	           SET status = $1, transaction_id = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, domain.PendingCompleted, transactionID, id, domain.PendingOpen)
	if err != nil {
		return fmt.Errorf("PendingRegistrationRepository.CompleteOnce: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("PendingRegistrationRepository.CompleteOnce (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}
