package system

import (
	"reflect"
	"testing"
	"time"
)

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var got []string
	rec := func(p Phase, name string) System {
		return Func{P: p, Fn: func(float32) { got = append(got, name) }}
	}
	r := NewRunner()
	r.Register(rec(PhaseUI, "ui"))
	r.Register(rec(PhaseScenes, "scene-a"))
	r.Register(rec(PhaseResources, "resources"))
	r.Register(rec(PhaseScenes, "scene-b"))
	r.Register(rec(PhaseScenes2D, "2d"))
	r.Register(rec(PhaseScenes, "scene-c"))

	r.Tick(0.016)
	want := []string{"resources", "scene-a", "scene-b", "scene-c", "2d", "ui"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestTickPhase(t *testing.T) {
	var dts []float32
	r := NewRunner()
	r.Register(Func{P: PhaseLate, Fn: func(dt float32) { dts = append(dts, dt) }})
	r.Register(Func{P: PhaseEvents, Fn: func(float32) { t.Fatal("events phase ran") }})

	r.TickPhase(PhaseLate, 0.5)
	if len(dts) != 1 || dts[0] != 0.5 {
		t.Fatalf("dts = %v", dts)
	}
}

func TestElapsedPerPhase(t *testing.T) {
	r := NewRunner()
	r.Register(Func{P: PhaseUI, Fn: func(float32) { time.Sleep(2 * time.Millisecond) }})
	r.Register(Func{P: PhaseEvents, Fn: func(float32) {}})

	r.Tick(0)
	if got := r.Elapsed(PhaseUI); got < 2*time.Millisecond {
		t.Fatalf("Elapsed(ui) = %v", got)
	}
	if got := r.Elapsed(PhaseLate); got != 0 {
		t.Fatalf("Elapsed(late) = %v for a phase with no systems", got)
	}
}
