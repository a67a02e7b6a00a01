package resource

import "fmt"

// TextureKind describes the shape of a texture.
type TextureKind uint8

const (
	TextureLine TextureKind = iota
	TextureRectangle
	TextureCube
	TextureVolume
)

func (k TextureKind) String() string {
	switch k {
	case TextureLine:
		return "line"
	case TextureRectangle:
		return "rectangle"
	case TextureCube:
		return "cube"
	case TextureVolume:
		return "volume"
	default:
		return fmt.Sprintf("TextureKind(%d)", uint8(k))
	}
}

// ParseTextureKind is the inverse of TextureKind.String.
func ParseTextureKind(s string) (TextureKind, error) {
	for k := TextureLine; k <= TextureVolume; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown texture kind %q", s)
}

// TextureData is a decoded texture. Width is the only meaningful dimension of
// a line texture; Depth is used by volume textures and is 6 for cube maps.
type TextureData struct {
	Kind   TextureKind
	Width  uint32
	Height uint32
	Depth  uint32
	Pixels []byte
}

// RectangleSize returns the pixel size of a rectangle texture. ok is false for
// every other kind.
func (d TextureData) RectangleSize() (width, height uint32, ok bool) {
	if d.Kind != TextureRectangle {
		return 0, 0, false
	}
	return d.Width, d.Height, true
}

// ModelData is a decoded model. Textures lists the texture paths it uses.
type ModelData struct {
	Meshes   int
	Vertices int
	Textures []string
}

// SoundData is a decoded sound buffer.
type SoundData struct {
	SampleRate uint32
	Channels   uint16
	Duration   float32 // seconds
	Samples    []byte
}

type (
	Texture     = Resource[TextureData]
	Model       = Resource[ModelData]
	SoundBuffer = Resource[SoundData]
)

// Upload asks the renderer to move a loaded texture to the GPU.
type Upload struct {
	Path    string
	Texture *Texture
}

// UploadSender is the renderer's upload queue.
type UploadSender chan<- Upload
