package ethdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/6529-Collections/nftsales/internal/db"
	"github.com/6529-Collections/nftsales/internal/markets"
)

type Checkpoint struct {
	Marketplace     string `json:"marketplace"`
	Chain           string `json:"chain"`
	LastSyncedBlock uint64 `json:"lastSyncedBlock"`
	UpdatedAt       int64  `json:"updatedAt"`
}

type CheckpointDb interface {
	GetCheckpoint(ctx context.Context, rq db.QueryRunner, marketplace markets.Marketplace, chain string) (uint64, error)
	// AdvanceCheckpoint never moves a checkpoint backwards.
	AdvanceCheckpoint(ctx context.Context, rq db.QueryRunner, marketplace markets.Marketplace, chain string, block uint64) error
	ListCheckpoints(ctx context.Context, rq db.QueryRunner) ([]Checkpoint, error)
}

func NewCheckpointDb() CheckpointDb {
	return &CheckpointDbImpl{now: time.Now}
}

type CheckpointDbImpl struct {
	now func() time.Time
}

func (c *CheckpointDbImpl) GetCheckpoint(ctx context.Context, rq db.QueryRunner, marketplace markets.Marketplace, chain string) (uint64, error) {
	var block uint64
	err := rq.QueryRowContext(ctx,
		`SELECT last_synced_block FROM sale_checkpoints WHERE marketplace = ? AND chain = ?`,
		string(marketplace), chain).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return block, err
}

func (c *CheckpointDbImpl) AdvanceCheckpoint(ctx context.Context, rq db.QueryRunner, marketplace markets.Marketplace, chain string, block uint64) error {
	_, err := rq.ExecContext(ctx, `
		INSERT INTO sale_checkpoints (marketplace, chain, last_synced_block, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (marketplace, chain) DO UPDATE SET
			last_synced_block = max(last_synced_block, excluded.last_synced_block),
			updated_at = excluded.updated_at`,
		string(marketplace), chain, block, c.now().Unix())
	return err
}

func (c *CheckpointDbImpl) ListCheckpoints(ctx context.Context, rq db.QueryRunner) ([]Checkpoint, error) {
	rows, err := rq.QueryContext(ctx, `
		SELECT marketplace, chain, last_synced_block, updated_at
		FROM sale_checkpoints ORDER BY marketplace, chain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.Marketplace, &cp.Chain, &cp.LastSyncedBlock, &cp.UpdatedAt); err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// CheckpointStore binds a CheckpointDb to a database for callers that do
// not manage their own transactions.
type CheckpointStore struct {
	sqlite      *sql.DB
	checkpoints CheckpointDb
}

func NewCheckpointStore(sqlite *sql.DB, checkpoints CheckpointDb) *CheckpointStore {
	return &CheckpointStore{sqlite: sqlite, checkpoints: checkpoints}
}

func (s *CheckpointStore) GetCheckpoint(ctx context.Context, marketplace markets.Marketplace, chain string) (uint64, error) {
	return s.checkpoints.GetCheckpoint(ctx, s.sqlite, marketplace, chain)
}

func (s *CheckpointStore) AdvanceCheckpoint(ctx context.Context, marketplace markets.Marketplace, chain string, block uint64) error {
	return s.checkpoints.AdvanceCheckpoint(ctx, s.sqlite, marketplace, chain, block)
}

func (s *CheckpointStore) ListCheckpoints(ctx context.Context) ([]Checkpoint, error) {
	return s.checkpoints.ListCheckpoints(ctx, s.sqlite)
}
