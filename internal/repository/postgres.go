package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/segmenter/pkg/model"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() { r.pool.Close() }

// Ping checks connectivity for health reporting.
func (r *PostgresRepository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *PostgresRepository) Save(ctx context.Context, s *model.SavedSegment) error {
	state, err := json.Marshal(s.QueryState)
	if err != nil {
		return fmt.Errorf("marshal query state: %w", err)
	}
	var composed []byte
	if s.ComposedSegment != nil {
		if composed, err = json.Marshal(s.ComposedSegment); err != nil {
			return fmt.Errorf("marshal composed segment: %w", err)
		}
	}

	q := `INSERT INTO saved_segments (id, account_id, name, query_state, composed_segment, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5, $6, $7)
          ON CONFLICT (id) DO UPDATE
          SET name = EXCLUDED.name,
              query_state = EXCLUDED.query_state,
              composed_segment = EXCLUDED.composed_segment,
              updated_at = EXCLUDED.updated_at
          WHERE saved_segments.account_id = EXCLUDED.account_id
          RETURNING created_at`
	err = r.pool.QueryRow(ctx, q,
		s.ID, s.AccountID, s.Name, state, composed, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// id exists under another account
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save segment: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, account_id, name, query_state, composed_segment, created_at, updated_at
          FROM saved_segments`

func (r *PostgresRepository) Get(ctx context.Context, accountID, id string) (*model.SavedSegment, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE account_id = $1 AND id = $2`, accountID, id)
	s, err := scanSegment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) List(ctx context.Context, accountID string) ([]*model.SavedSegment, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` WHERE account_id = $1 ORDER BY updated_at DESC, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	out := []*model.SavedSegment{}
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, accountID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM saved_segments WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSegment(row pgx.Row) (*model.SavedSegment, error) {
	var s model.SavedSegment
	var state, composed []byte
	if err := row.Scan(&s.ID, &s.AccountID, &s.Name, &state, &composed, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(state, &s.QueryState); err != nil {
		return nil, fmt.Errorf("decode query state: %w", err)
	}
	if len(composed) > 0 {
		s.ComposedSegment = &model.Segment{}
		if err := json.Unmarshal(composed, s.ComposedSegment); err != nil {
			return nil, fmt.Errorf("decode composed segment: %w", err)
		}
	}
	return &s, nil
}
