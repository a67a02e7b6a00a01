package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const (
	fileMagic = "FCSV"
	fileExt   = ".sav"
	headerLen = len(fileMagic) + 32
)

// FileStore keeps one file per slot: magic, BLAKE2b-256 of the payload, then
// the payload. Writes go to a temp file that is renamed into place.
type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+fileExt)
}

func (s *FileStore) Save(ctx context.Context, slot string, data []byte) error {
	if err := validateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	defer os.Remove(tmp.Name())

	buf := make([]byte, 0, headerLen+len(data))
	buf = append(buf, fileMagic...)
	buf = append(buf, checksum(data)...)
	buf = append(buf, data...)
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.log.Debug("slot saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := validateSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	if len(raw) < headerLen || string(raw[:len(fileMagic)]) != fileMagic {
		return nil, fmt.Errorf("%w: %s: bad header", ErrChecksum, slot)
	}
	sum, data := raw[len(fileMagic):headerLen], raw[headerLen:]
	if !bytes.Equal(sum, checksum(data)) {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, slot)
	}
	return data, nil
}

// List returns the stored slots sorted by name.
func (s *FileStore) List(ctx context.Context) ([]SlotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	var out []SlotInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("list slots: %w", err)
		}
		size := int(info.Size()) - headerLen
		if size < 0 {
			size = 0
		}
		out = append(out, SlotInfo{Slot: strings.TrimSuffix(name, fileExt), Size: size, SavedAt: info.ModTime()})
	}
	slices.SortFunc(out, func(a, b SlotInfo) int { return strings.Compare(a.Slot, b.Slot) })
	return out, nil
}
