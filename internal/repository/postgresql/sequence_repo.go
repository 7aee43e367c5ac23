package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"smart_parking_core/internal/repository"
)

type pgSequenceRepository struct {
	db *sql.DB
}

func NewPgSequenceRepository(db *sql.DB) repository.SequenceRepository {
	return &pgSequenceRepository{db: db}
}

// Next tăng và trả về số thứ tự cho một prefix. Upsert kiểu atomic nên hai
// request cùng lúc không bao giờ nhận cùng một số.
func (r *pgSequenceRepository) Next(ctx context.Context, name string) (int, error) {
	query := `INSERT INTO id_sequences (name, value) VALUES ($1, 1)
	           ON CONFLICT (name) DO UPDATE SET value = id_sequences.value + 1
	           RETURNING value`
	var value int
	err := r.db.QueryRowContext(ctx, query, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("SequenceRepository.Next: %w", err)
	}
	return value, nil
}
