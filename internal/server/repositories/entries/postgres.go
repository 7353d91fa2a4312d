// Package entries provides the PostgreSQL-backed store for financial entries
// (lancamentos) and the per-user sums used for balances.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/dbx"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/shopspring/decimal"
)

const selectColumns = `SELECT id, descricao, mes, ano, valor, tipo, status, id_usuario, data_cadastro FROM financas.lancamento`

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts entry and fills its ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query := `
		INSERT INTO financas.lancamento (descricao, mes, ano, valor, tipo, status, id_usuario)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, data_cadastro
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.Description, entry.Month, entry.Year, entry.Amount,
		string(entry.Type), string(entry.Status), entry.UserID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

// Update overwrites every mutable column of the row with entry.ID.
// The creation date is never touched. Returns common.ErrNotFound when no row matches.
func (r *PostgresRepository) Update(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	query := `
		UPDATE financas.lancamento
		SET descricao = $1, mes = $2, ano = $3, valor = $4, tipo = $5, status = $6, id_usuario = $7
		WHERE id = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		entry.Description, entry.Month, entry.Year, entry.Amount,
		string(entry.Type), string(entry.Status), entry.UserID, entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM financas.lancamento WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

// Search matches by equality on the fields of filter that are set; unset
// fields are wildcards. Results are ordered by id.
func (r *PostgresRepository) Search(ctx context.Context, filter models.EntryFilter) ([]*models.Entry, error) {
	var (
		conds []string
		args  []any
	)
	where := func(column string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.Description != "" {
		where("descricao", filter.Description)
	}
	if filter.Month != 0 {
		where("mes", filter.Month)
	}
	if filter.Year != 0 {
		where("ano", filter.Year)
	}
	if filter.UserID != 0 {
		where("id_usuario", filter.UserID)
	}
	if filter.Type != "" {
		where("tipo", string(filter.Type))
	}
	if filter.Status != "" {
		where("status", string(filter.Status))
	}

	query := selectColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	result := []*models.Entry{}
	for rows.Next() {
		item, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SumByTypeAndStatus returns SUM(valor) of the user's entries with the given
// type and status, zero when there are none.
func (r *PostgresRepository) SumByTypeAndStatus(ctx context.Context, userID int64, t models.EntryType, s models.EntryStatus) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(valor), 0) FROM financas.lancamento
		WHERE id_usuario = $1 AND tipo = $2 AND status = $3
	`
	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, userID, string(t), string(s)).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	return sum, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var (
		item        models.Entry
		entryType   string
		entryStatus string
	)
	if err := s.Scan(
		&item.ID, &item.Description, &item.Month, &item.Year, &item.Amount,
		&entryType, &entryStatus, &item.UserID, &item.CreatedAt,
	); err != nil {
		return nil, err
	}
	item.Type = models.EntryType(entryType)
	item.Status = models.EntryStatus(entryStatus)
	return &item, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
