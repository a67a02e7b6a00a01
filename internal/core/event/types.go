package event

// StateSaved is emitted after engine state was written.
type StateSaved struct {
	Slot  string
	Bytes int
}

// StateLoaded is emitted after a load finished its reload and resolve passes.
type StateLoaded struct {
	Slot     string
	Scenes   int
	Scenes2D int
}

// RenderFailed is emitted when the renderer rejects a frame.
type RenderFailed struct {
	Frame uint64
	Err   error
}

// SceneResolved is emitted once per scene resolved after a load.
type SceneResolved struct {
	Name string
	Is2D bool
}
