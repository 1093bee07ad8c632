package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tripnav/internal/model"
)

// Postgres persists trips and optimization results as JSONB documents.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema if absent. Dev helper; production uses managed
// migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS trips (
    group_id text PRIMARY KEY,
    data jsonb NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS trip_results (
    group_id text PRIMARY KEY,
    result jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
);`)
	return err
}

func (p *Postgres) CreateTrip(ctx context.Context, data model.TripData) (string, error) {
	if data.GroupID == "" {
		data.GroupID = newGroupID()
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("store: marshal trip: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO trips (group_id, data) VALUES ($1, $2)
		 ON CONFLICT (group_id) DO UPDATE SET data = EXCLUDED.data`,
		data.GroupID, b)
	if err != nil {
		return "", fmt.Errorf("store: insert trip: %w", err)
	}
	return data.GroupID, nil
}

func (p *Postgres) FetchTripData(ctx context.Context, groupID, requester string) (model.TripData, error) {
	var b []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM trips WHERE group_id=$1`, groupID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TripData{}, ErrNotFound
	}
	if err != nil {
		return model.TripData{}, fmt.Errorf("store: fetch trip %s: %w", groupID, err)
	}
	var data model.TripData
	if err := json.Unmarshal(b, &data); err != nil {
		return model.TripData{}, fmt.Errorf("store: decode trip %s: %w", groupID, err)
	}
	if !requesterAllowed(data, requester) {
		return model.TripData{}, ErrForbidden
	}
	return data, nil
}

func (p *Postgres) SaveResult(ctx context.Context, groupID string, res model.OptimizeResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("store: marshal result: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO trip_results (group_id, result, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (group_id) DO UPDATE SET result = EXCLUDED.result, updated_at = now()`,
		groupID, b)
	if err != nil {
		return fmt.Errorf("store: save result %s: %w", groupID, err)
	}
	return nil
}

func (p *Postgres) GetResult(ctx context.Context, groupID string) (model.OptimizeResult, error) {
	var b []byte
	err := p.db.QueryRowContext(ctx, `SELECT result FROM trip_results WHERE group_id=$1`, groupID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OptimizeResult{}, ErrNotFound
	}
	if err != nil {
		return model.OptimizeResult{}, fmt.Errorf("store: get result %s: %w", groupID, err)
	}
	var res model.OptimizeResult
	if err := json.Unmarshal(b, &res); err != nil {
		return model.OptimizeResult{}, fmt.Errorf("store: decode result %s: %w", groupID, err)
	}
	return res, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
