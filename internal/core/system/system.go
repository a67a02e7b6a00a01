package system

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseEvents    Phase = iota // 0: deliver last frame's events
	PhaseResources              // 1: resource bookkeeping
	PhaseScenes                 // 2: advance 3D scenes
	PhaseScenes2D               // 3: advance 2D scenes
	PhaseUI                     // 4: advance the UI tree
	PhaseLate                   // 5: user systems that observe the finished frame
)

func (p Phase) String() string {
	switch p {
	case PhaseEvents:
		return "events"
	case PhaseResources:
		return "resources"
	case PhaseScenes:
		return "scenes"
	case PhaseScenes2D:
		return "scenes2d"
	case PhaseUI:
		return "ui"
	case PhaseLate:
		return "late"
	default:
		return "unknown"
	}
}

// System is one unit of per-frame work. dt is in seconds.
type System interface {
	Phase() Phase
	Update(dt float32)
}

// Func adapts a plain function to System.
type Func struct {
	P  Phase
	Fn func(dt float32)
}

func (f Func) Phase() Phase      { return f.P }
func (f Func) Update(dt float32) { f.Fn(dt) }
