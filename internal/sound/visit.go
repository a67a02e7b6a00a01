package sound

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/framecore/framecore/internal/core/visitor"
)

// Visit persists the master gain and every context with its sources.
// Reading replaces all contexts.
func (e *Engine) Visit(name string, v *visitor.Visitor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return v.Region(name, func() error {
		if err := v.Float32("MasterGain", &e.masterGain); err != nil {
			return err
		}
		contexts := make([]*soundContext, 0, len(e.order))
		for _, id := range e.order {
			contexts = append(contexts, e.contexts[id])
		}
		if err := visitor.Slice(v, "Contexts", &contexts, visitContext); err != nil {
			return err
		}
		if v.IsReading() {
			clear(e.contexts)
			e.order = e.order[:0]
			for _, c := range contexts {
				e.contexts[c.id] = c
				e.order = append(e.order, c.id)
			}
		}
		return nil
	})
}

func visitContext(name string, v *visitor.Visitor, c **soundContext) error {
	if *c == nil {
		*c = newContext(uuid.Nil)
	}
	ctx := *c
	return v.Region(name, func() error {
		if err := v.UUID("Id", &ctx.id); err != nil {
			return err
		}
		if err := ctx.listener.Visit("Listener", v); err != nil {
			return err
		}
		if err := v.Bool("Paused", &ctx.paused); err != nil {
			return err
		}
		if err := v.Float32("Gain", &ctx.gain); err != nil {
			return err
		}
		next := uint64(ctx.nextID)
		if err := v.Uint64("NextId", &next); err != nil {
			return err
		}
		ctx.nextID = SourceID(next)

		sources := make([]Source, 0, len(ctx.sources))
		for _, s := range ctx.sources {
			sources = append(sources, *s)
		}
		slices.SortFunc(sources, func(a, b Source) int { return cmp.Compare(a.ID, b.ID) })
		if err := visitor.Slice(v, "Sources", &sources, visitSource); err != nil {
			return err
		}
		if v.IsReading() {
			ctx.sources = make(map[SourceID]*Source, len(sources))
			for i := range sources {
				ctx.sources[sources[i].ID] = &sources[i]
			}
		}
		return nil
	})
}

func visitSource(name string, v *visitor.Visitor, s *Source) error {
	return v.Region(name, func() error {
		id := uint64(s.ID)
		if err := v.Uint64("Id", &id); err != nil {
			return err
		}
		s.ID = SourceID(id)
		if err := v.String("Buffer", &s.Buffer); err != nil {
			return err
		}
		if err := s.Position.Visit("Position", v); err != nil {
			return err
		}
		for _, f := range []struct {
			name string
			p    *float32
		}{
			{"Gain", &s.Gain},
			{"Duration", &s.Duration},
			{"Playhead", &s.Playhead},
		} {
			if err := v.Float32(f.name, f.p); err != nil {
				return err
			}
		}
		for _, f := range []struct {
			name string
			p    *bool
		}{
			{"Looping", &s.Looping},
			{"Spatial", &s.Spatial},
			{"Playing", &s.Playing},
		} {
			if err := v.Bool(f.name, f.p); err != nil {
				return err
			}
		}
		return nil
	})
}
