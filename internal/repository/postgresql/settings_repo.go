package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
)

type pgSettingsRepository struct {
	db *sql.DB
}

func NewPgSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) Get(ctx context.Context) (*domain.SystemSettings, error) {
	s := &domain.SystemSettings{}
	query := `SELECT motorbike_slots, car_slots, casual_fee_motorbike, casual_fee_car,
	            monthly_fee_motorbike, monthly_fee_car, updated_at
	           FROM system_settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.MotorbikeSlots, &s.CarSlots, &s.CasualFeeMotorbike, &s.CasualFeeCar,
		&s.MonthlyFeeMotorbike, &s.MonthlyFeeCar, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SettingsRepository.Get: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSettingsRepository) Save(ctx context.Context, settings *domain.SystemSettings) (*domain.SystemSettings, error) {
	query := `INSERT INTO system_settings (id, motorbike_slots, car_slots, casual_fee_motorbike, casual_fee_car,
	            monthly_fee_motorbike, monthly_fee_car, updated_at)
	           VALUES (1, $1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
	           ON CONFLICT (id) DO UPDATE SET
	             motorbike_slots = EXCLUDED.motorbike_slots,
	             car_slots = EXCLUDED.car_slots,
	             casual_fee_motorbike = EXCLUDED.casual_fee_motorbike,
	             casual_fee_car = EXCLUDED.casual_fee_car,
	             monthly_fee_motorbike = EXCLUDED.monthly_fee_motorbike,
	             monthly_fee_car = EXCLUDED.monthly_fee_car,
	             updated_at = CURRENT_TIMESTAMP
	           RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		settings.MotorbikeSlots, settings.CarSlots, settings.CasualFeeMotorbike, settings.CasualFeeCar,
		settings.MonthlyFeeMotorbike, settings.MonthlyFeeCar,
	).Scan(&settings.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.Save: %w", err)
	}
	settings.UpdatedAt = settings.UpdatedAt.In(time.UTC)
	return settings, nil
}

func (r *pgSettingsRepository) GetDiscountTiers(ctx context.Context) ([]domain.DiscountTier, error) {
	query := `SELECT min_months, max_months, percent FROM discount_tiers ORDER BY min_months`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetDiscountTiers: %w", err)
	}
	defer rows.Close()

	var tiers []domain.DiscountTier
	for rows.Next() {
		var t domain.DiscountTier
		if err := rows.Scan(&t.MinMonths, &t.MaxMonths, &t.Percent); err != nil {
			return nil, fmt.Errorf("SettingsRepository.GetDiscountTiers (scanning row): %w", err)
		}
		tiers = append(tiers, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SettingsRepository.GetDiscountTiers (rows error): %w", err)
	}
	return tiers, nil
}

func (r *pgSettingsRepository) ReplaceDiscountTiers(ctx context.Context, tiers []domain.DiscountTier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SettingsRepository.ReplaceDiscountTiers (begin tx): %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM discount_tiers`); err != nil {
		return fmt.Errorf("SettingsRepository.ReplaceDiscountTiers (delete): %w", err)
	}
	for _, t := range tiers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO discount_tiers (min_months, max_months, percent) VALUES ($1, $2, $3)`,
			t.MinMonths, t.MaxMonths, t.Percent)
		if err != nil {
			return fmt.Errorf("SettingsRepository.ReplaceDiscountTiers (insert): %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SettingsRepository.ReplaceDiscountTiers (commit): %w", err)
	}
	return nil
}
