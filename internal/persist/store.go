// Package persist stores saved engine state in named slots, either as files
// or in PostgreSQL.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

var (
	ErrSlotNotFound = errors.New("persist: slot not found")
	ErrChecksum     = errors.New("persist: checksum mismatch")
	ErrInvalidSlot  = errors.New("persist: invalid slot name")
)

// SlotInfo describes a stored slot.
type SlotInfo struct {
	Slot    string
	Size    int
	SavedAt time.Time
}

// Store keeps saved state by slot name.
type Store interface {
	Save(ctx context.Context, slot string, data []byte) error
	Load(ctx context.Context, slot string) ([]byte, error)
	List(ctx context.Context) ([]SlotInfo, error)
}

func checksum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// validateSlot accepts names made of letters, digits, '-', '_' and '.',
// not starting with '.'.
func validateSlot(slot string) error {
	if slot == "" || len(slot) > 128 || slot[0] == '.' {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
		}
	}
	return nil
}
