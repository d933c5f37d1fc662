package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftmods/cobblespawner/internal/model"
)

// SpawnerRepository handles spawner record CRUD. Implements spawn.Store.
type SpawnerRepository struct {
	pool *pgxpool.Pool
}

// NewSpawnerRepository creates a new spawner repository.
func NewSpawnerRepository(pool *pgxpool.Pool) *SpawnerRepository {
	return &SpawnerRepository{pool: pool}
}

// LoadAll loads every spawner record.
func (r *SpawnerRepository) LoadAll(ctx context.Context) ([]model.SpawnerSnapshot, error) {
	query := `
		SELECT x, y, z, dimension, name, timer_ticks,
		       radius_width, radius_height, spawn_limit, amount_per_tick,
		       visible, show_particles, entries
		FROM spawners
		ORDER BY dimension, x, y, z
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading all spawners: %w", err)
	}
	defer rows.Close()

	snapshots := make([]model.SpawnerSnapshot, 0, 16)

	for rows.Next() {
		var (
			sn          model.SpawnerSnapshot
			entriesJSON []byte
		)
		if err := rows.Scan(
			&sn.Key.Pos.X, &sn.Key.Pos.Y, &sn.Key.Pos.Z, &sn.Key.Dimension,
			&sn.Name, &sn.TimerTicks,
			&sn.Radius.Width, &sn.Radius.Height, &sn.Limit, &sn.AmountPerTick,
			&sn.Visible, &sn.ShowParticles, &entriesJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning spawner row: %w", err)
		}
		if len(entriesJSON) > 0 {
			if err := json.Unmarshal(entriesJSON, &sn.Entries); err != nil {
				return nil, fmt.Errorf("decoding entries for spawner %q: %w", sn.Name, err)
			}
		}
		snapshots = append(snapshots, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spawner rows: %w", err)
	}

	return snapshots, nil
}

// Save upserts one spawner record, keyed by position + dimension.
func (r *SpawnerRepository) Save(ctx context.Context, sn model.SpawnerSnapshot) error {
	entriesJSON, err := json.Marshal(sn.Entries)
	if err != nil {
		return fmt.Errorf("encoding entries for spawner %q: %w", sn.Name, err)
	}

	query := `
		INSERT INTO spawners (
			x, y, z, dimension, name, timer_ticks,
			radius_width, radius_height, spawn_limit, amount_per_tick,
			visible, show_particles, entries
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (x, y, z, dimension) DO UPDATE SET
			name = EXCLUDED.name,
			timer_ticks = EXCLUDED.timer_ticks,
			radius_width = EXCLUDED.radius_width,
			radius_height = EXCLUDED.radius_height,
			spawn_limit = EXCLUDED.spawn_limit,
			amount_per_tick = EXCLUDED.amount_per_tick,
			visible = EXCLUDED.visible,
			show_particles = EXCLUDED.show_particles,
			entries = EXCLUDED.entries
	`

	_, err = r.pool.Exec(ctx, query,
		sn.Key.Pos.X, sn.Key.Pos.Y, sn.Key.Pos.Z, sn.Key.Dimension,
		sn.Name, sn.TimerTicks,
		sn.Radius.Width, sn.Radius.Height, sn.Limit, sn.AmountPerTick,
		sn.Visible, sn.ShowParticles, entriesJSON,
	)
	if err != nil {
		return fmt.Errorf("saving spawner %q: %w", sn.Name, err)
	}
	return nil
}

// Delete removes one spawner record. Unknown keys are a no-op.
func (r *SpawnerRepository) Delete(ctx context.Context, key model.SpawnerKey) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM spawners WHERE x = $1 AND y = $2 AND z = $3 AND dimension = $4`,
		key.Pos.X, key.Pos.Y, key.Pos.Z, key.Dimension,
	)
	if err != nil {
		return fmt.Errorf("deleting spawner at %s: %w", key, err)
	}
	return nil
}
