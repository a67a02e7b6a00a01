package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PGStore keeps slots in the save_slots table.
type PGStore struct {
	db *DB
}

func NewPGStore(db *DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Save(ctx context.Context, slot string, data []byte) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO save_slots (slot, data, checksum, size, saved_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (slot) DO UPDATE
		 SET data = EXCLUDED.data, checksum = EXCLUDED.checksum,
		     size = EXCLUDED.size, saved_at = EXCLUDED.saved_at`,
		slot, data, checksum(data), len(data),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.db.log.Debug("slot saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

func (s *PGStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := validateSlot(slot); err != nil {
		return nil, err
	}
	var data, sum []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT data, checksum FROM save_slots WHERE slot = $1`, slot,
	).Scan(&data, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	if !bytes.Equal(sum, checksum(data)) {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, slot)
	}
	return data, nil
}

func (s *PGStore) List(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT slot, size, saved_at FROM save_slots ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		if err := rows.Scan(&info.Slot, &info.Size, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
