package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// GetBalance возвращает текущий баланс кредитов пользователя по типу.
// Отсутствие строки — баланс 0, не ошибка.
func (s *Storage) GetBalance(ctx context.Context, userUID, creditType string) (int, error) {
	const op = "storage.GetBalance"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT balance FROM credits WHERE user_uid = $1 AND credit_type = $2`
	var balance int
	err := s.DB.QueryRowContext(ctx, query, userUID, creditType).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// ConsumeBalance атомарно списывает amount кредитов, если их достаточно.
// Условие balance >= amount входит в сам UPDATE: частичное списание или
// уход в минус невозможны на уровне запроса. Возвращает новый баланс и
// признак успеха. Ноль затронутых строк означает нехватку кредитов.
func (s *Storage) ConsumeBalance(ctx context.Context, userUID, creditType string, amount int) (int, bool, error) {
	const op = "storage.ConsumeBalance"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `UPDATE credits SET balance = balance - $3, updated_at = now()
			  WHERE user_uid = $1 AND credit_type = $2 AND balance >= $3
			  RETURNING balance`
	var newBalance int
	err = tx.QueryRowContext(ctx, query, userUID, creditType, amount).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	journal := `INSERT INTO credit_journal (id, user_uid, credit_type, delta, balance, reason)
				VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, journal,
		uuid.New().String(), userUID, creditType, -amount, newBalance, "consume"); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return newBalance, true, nil
}

// SetBalance безусловно перезаписывает баланс значением от биллингового
// сервиса и пишет строку журнала с указанной причиной.
func (s *Storage) SetBalance(ctx context.Context, userUID, creditType string, balance int, reason string) error {
	const op = "storage.SetBalance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var prev int
	read := `SELECT COALESCE((SELECT balance FROM credits
			  WHERE user_uid = $1 AND credit_type = $2), 0)`
	if err = tx.QueryRowContext(ctx, read, userUID, creditType).Scan(&prev); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	upsert := `INSERT INTO credits (user_uid, credit_type, balance, updated_at)
			   VALUES ($1, $2, $3, now())
			   ON CONFLICT (user_uid, credit_type)
			   DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`
	if _, err = tx.ExecContext(ctx, upsert, userUID, creditType, balance); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	journal := `INSERT INTO credit_journal (id, user_uid, credit_type, delta, balance, reason)
				VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, journal,
		uuid.New().String(), userUID, creditType, balance-prev, balance, reason); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InitBalances заводит нулевые строки баланса для всех известных типов
// кредитов, не трогая уже существующие значения. Повторный вызов безопасен.
func (s *Storage) InitBalances(ctx context.Context, userUID string, initial map[string]int) error {
	const op = "storage.InitBalances"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO credits (user_uid, credit_type, balance)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_uid, credit_type) DO NOTHING`
	for creditType, balance := range initial {
		if _, err := s.DB.ExecContext(ctx, query, userUID, creditType, balance); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// ListJournal возвращает журнал операций пользователя, новые записи первыми.
func (s *Storage) ListJournal(ctx context.Context, userUID string, limit, offset int) ([]*models.CreditJournalEntry, error) {
	const op = "storage.ListJournal"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, credit_type, delta, balance, reason, created_at
			  FROM credit_journal WHERE user_uid = $1
			  ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.CreditJournalEntry
	for rows.Next() {
		var entry models.CreditJournalEntry
		if err := rows.Scan(&entry.ID, &entry.UserUID, &entry.CreditType,
			&entry.Delta, &entry.Balance, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
