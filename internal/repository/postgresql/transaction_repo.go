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

type pgTransactionRepository struct {
	db *sql.DB
}

func NewPgTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &pgTransactionRepository{db: db}
}

const txColumns = `transaction_id, idempotency_key, vehicle_id, license_plate, amount, type,
	payment_method, status, version, description, payment_ref, expires_at, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	var vehicleID, licensePlate, paymentRef sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&tx.TransactionID, &tx.IdempotencyKey, &vehicleID, &licensePlate, &tx.Amount, &tx.Type,
		&tx.PaymentMethod, &tx.Status, &tx.Version, &tx.Description, &paymentRef, &expiresAt, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if vehicleID.Valid {
		tx.VehicleID = null.StringFrom(vehicleID.String)
	}
	if licensePlate.Valid {
		tx.LicensePlate = null.StringFrom(licensePlate.String)
	}
	if paymentRef.Valid {
		tx.PaymentRef = null.StringFrom(paymentRef.String)
	}
	if expiresAt.Valid {
		tx.ExpiresAt = null.TimeFrom(expiresAt.Time.In(time.UTC))
	}
	tx.CreatedAt = tx.CreatedAt.In(time.UTC)
	tx.UpdatedAt = tx.UpdatedAt.In(time.UTC)
	return tx, nil
}

func (r *pgTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	query := `INSERT INTO transactions (transaction_id, idempotency_key, vehicle_id, license_plate, amount, type,
	            payment_method, status, version, description, payment_ref, expires_at, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		tx.TransactionID, tx.IdempotencyKey, tx.VehicleID, tx.LicensePlate, tx.Amount, tx.Type,
		tx.PaymentMethod, tx.Status, tx.Version, tx.Description, tx.PaymentRef, tx.ExpiresAt,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			if pqErr.Constraint == "transactions_idempotency_key_key" {
				return nil, fmt.Errorf("%w: idempotency key '%s' đã được dùng", repository.ErrDuplicateEntry, tx.IdempotencyKey)
			}
			return nil, fmt.Errorf("%w: giao dịch '%s' đã tồn tại", repository.ErrDuplicateEntry, tx.TransactionID)
		}
		return nil, fmt.Errorf("TransactionRepository.Create: %w", err)
	}
	tx.CreatedAt = tx.CreatedAt.In(time.UTC)
	tx.UpdatedAt = tx.UpdatedAt.In(time.UTC)
	return tx, nil
}

func (r *pgTransactionRepository) FindByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE transaction_id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("TransactionRepository.FindByID: %w", err)
	}
	return tx, nil
}

func (r *pgTransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE idempotency_key = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("TransactionRepository.FindByIdempotencyKey: %w", err)
	}
	return tx, nil
}

// UpdateWithVersion ghi có điều kiện trên version: chỉ thành công khi version
// trong DB vẫn là tx.Version, sau đó tăng version lên một. Khi trả ErrConflict
// thì caller phải đọc lại bản ghi và thử lại.
func (r *pgTransactionRepository) UpdateWithVersion(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	query := `UPDATE transactions
	           SET status = $1, payment_ref = $2, description = $3, expires_at = $4,
	               version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE transaction_id = $5 AND version = $6
	           RETURNING version, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		tx.Status, tx.PaymentRef, tx.Description, tx.ExpiresAt, tx.TransactionID, tx.Version,
	).Scan(&tx.Version, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("TransactionRepository.UpdateWithVersion: %w", err)
	}
	tx.UpdatedAt = tx.UpdatedAt.In(time.UTC)
	return tx, nil
}

func (r *pgTransactionRepository) Find(ctx context.Context, filter domain.TransactionFilterDTO) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1`
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
	if filter.PaymentMethod != nil {
		query += fmt.Sprintf(" AND payment_method = $%d", argIdx)
		args = append(args, *filter.PaymentMethod)
		argIdx++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("TransactionRepository.Find: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("TransactionRepository.Find (scanning row): %w", err)
		}
		result = append(result, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("TransactionRepository.Find (rows error): %w", err)
	}
	return result, nil
}

func (r *pgTransactionRepository) FindTimedOutPending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
	           WHERE status = $1 AND created_at < $2
	           ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, domain.TxPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("TransactionRepository.FindTimedOutPending: %w", err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("TransactionRepository.FindTimedOutPending (scanning row): %w", err)
		}
		result = append(result, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("TransactionRepository.FindTimedOutPending (rows error): %w", err)
	}
	return result, nil
}

func (r *pgTransactionRepository) Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	report := &domain.RevenueReport{
		From:            from,
		To:              to,
		ByPaymentMethod: make(map[string]float64),
		ByType:          make(map[string]float64),
	}

	query := `SELECT payment_method, type, SUM(amount), COUNT(*) FROM transactions
	           WHERE status = $1 AND created_at >= $2 AND created_at <= $3
	           GROUP BY payment_method, type`
	rows, err := r.db.QueryContext(ctx, query, domain.TxCompleted, from, to)
	if err != nil {
		return nil, fmt.Errorf("TransactionRepository.Revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var method, txType string
		var sum float64
		var count int
		if err := rows.Scan(&method, &txType, &sum, &count); err != nil {
			return nil, fmt.Errorf("TransactionRepository.Revenue (scanning row): %w", err)
		}
		report.ByPaymentMethod[method] += sum
		report.ByType[txType] += sum
		report.TotalRevenue += sum
		report.CompletedCount += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("TransactionRepository.Revenue (rows error): %w", err)
	}
	return report, nil
}
