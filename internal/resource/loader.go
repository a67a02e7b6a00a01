package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by loaders for paths they know nothing about.
var ErrNotFound = errors.New("resource: not found")

// Loader produces decoded assets. Implementations must be safe for concurrent
// use; the manager calls them from several goroutines at once.
type Loader interface {
	LoadTexture(ctx context.Context, path string) (TextureData, error)
	LoadModel(ctx context.Context, path string) (ModelData, error)
	LoadSound(ctx context.Context, path string) (SoundData, error)
}

// emptyLoader knows no assets. Render targets still work without a loader.
type emptyLoader struct{}

func (emptyLoader) LoadTexture(_ context.Context, p string) (TextureData, error) {
	return TextureData{}, fmt.Errorf("texture %s: %w", p, ErrNotFound)
}

func (emptyLoader) LoadModel(_ context.Context, p string) (ModelData, error) {
	return ModelData{}, fmt.Errorf("model %s: %w", p, ErrNotFound)
}

func (emptyLoader) LoadSound(_ context.Context, p string) (SoundData, error) {
	return SoundData{}, fmt.Errorf("sound %s: %w", p, ErrNotFound)
}

// NormalizePath maps equivalent spellings of an asset path to one key:
// Unicode NFC, forward slashes, cleaned, no leading "./".
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = norm.NFC.String(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}

// --- YAML manifest ---

type textureEntry struct {
	Path   string `yaml:"path"`
	Kind   string `yaml:"kind"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Depth  uint32 `yaml:"depth"`
	File   string `yaml:"file"` // optional raw pixel file under the root
}

type modelEntry struct {
	Path     string   `yaml:"path"`
	Meshes   int      `yaml:"meshes"`
	Vertices int      `yaml:"vertices"`
	Textures []string `yaml:"textures"`
}

type soundEntry struct {
	Path       string  `yaml:"path"`
	SampleRate uint32  `yaml:"sample_rate"`
	Channels   uint16  `yaml:"channels"`
	Duration   float32 `yaml:"duration"`
	File       string  `yaml:"file"`
}

type manifestFile struct {
	Textures []textureEntry `yaml:"textures"`
	Models   []modelEntry   `yaml:"models"`
	Sounds   []soundEntry   `yaml:"sounds"`
}

// ManifestLoader serves assets described by a YAML manifest. Only the
// optional raw files are read at load time; the manifest itself is parsed
// once.
type ManifestLoader struct {
	root     string
	textures map[string]textureEntry
	models   map[string]modelEntry
	sounds   map[string]soundEntry
}

// LoadManifest parses the manifest at path. Raw files are resolved against root.
func LoadManifest(path, root string) (*ManifestLoader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(raw, root)
}

// ParseManifest builds a loader from manifest bytes.
func ParseManifest(raw []byte, root string) (*ManifestLoader, error) {
	var f manifestFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	l := &ManifestLoader{
		root:     root,
		textures: make(map[string]textureEntry, len(f.Textures)),
		models:   make(map[string]modelEntry, len(f.Models)),
		sounds:   make(map[string]soundEntry, len(f.Sounds)),
	}
	for _, e := range f.Textures {
		if e.Kind == "" {
			e.Kind = TextureRectangle.String()
		}
		if _, err := ParseTextureKind(e.Kind); err != nil {
			return nil, fmt.Errorf("texture %s: %w", e.Path, err)
		}
		l.textures[NormalizePath(e.Path)] = e
	}
	for _, e := range f.Models {
		l.models[NormalizePath(e.Path)] = e
	}
	for _, e := range f.Sounds {
		l.sounds[NormalizePath(e.Path)] = e
	}
	return l, nil
}

// Count returns the number of manifest entries of every kind.
func (l *ManifestLoader) Count() int {
	return len(l.textures) + len(l.models) + len(l.sounds)
}

func (l *ManifestLoader) LoadTexture(ctx context.Context, p string) (TextureData, error) {
	e, ok := l.textures[NormalizePath(p)]
	if !ok {
		return TextureData{}, fmt.Errorf("texture %s: %w", p, ErrNotFound)
	}
	kind, _ := ParseTextureKind(e.Kind)
	pixels, err := l.readFile(ctx, e.File)
	if err != nil {
		return TextureData{}, fmt.Errorf("texture %s: %w", p, err)
	}
	return TextureData{Kind: kind, Width: e.Width, Height: e.Height, Depth: e.Depth, Pixels: pixels}, nil
}

func (l *ManifestLoader) LoadModel(ctx context.Context, p string) (ModelData, error) {
	e, ok := l.models[NormalizePath(p)]
	if !ok {
		return ModelData{}, fmt.Errorf("model %s: %w", p, ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return ModelData{}, err
	}
	textures := make([]string, len(e.Textures))
	for i, t := range e.Textures {
		textures[i] = NormalizePath(t)
	}
	return ModelData{Meshes: e.Meshes, Vertices: e.Vertices, Textures: textures}, nil
}

func (l *ManifestLoader) LoadSound(ctx context.Context, p string) (SoundData, error) {
	e, ok := l.sounds[NormalizePath(p)]
	if !ok {
		return SoundData{}, fmt.Errorf("sound %s: %w", p, ErrNotFound)
	}
	samples, err := l.readFile(ctx, e.File)
	if err != nil {
		return SoundData{}, fmt.Errorf("sound %s: %w", p, err)
	}
	return SoundData{SampleRate: e.SampleRate, Channels: e.Channels, Duration: e.Duration, Samples: samples}, nil
}

func (l *ManifestLoader) readFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}
	return os.ReadFile(filepath.Join(l.root, filepath.FromSlash(name)))
}
