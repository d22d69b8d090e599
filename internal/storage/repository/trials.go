package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// StartTrial сохраняет момент старта пробного периода. Идемпотентно:
// если старт уже записан, вставка не происходит и возвращается false,
// существующая метка времени не перезаписывается.
func (s *Storage) StartTrial(ctx context.Context, userUID string, startedAt time.Time) (bool, error) {
	const op = "storage.StartTrial"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trials (user_uid, started_at) VALUES ($1, $2)
			  ON CONFLICT (user_uid) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, userUID, startedAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}

// GetTrial возвращает состояние пробного периода пользователя,
// nil — пробный период ни разу не стартовал.
func (s *Storage) GetTrial(ctx context.Context, userUID string) (*models.TrialState, error) {
	const op = "storage.GetTrial"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, started_at FROM trials WHERE user_uid = $1`
	var state models.TrialState
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&state.UserUID, &state.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &state, nil
}
