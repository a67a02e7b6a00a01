package mathx

import "github.com/framecore/framecore/internal/core/visitor"

// Visit persists the vector as region name { X, Y }.
func (p *Vector2) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := v.Float32("X", &p.X); err != nil {
			return err
		}
		return v.Float32("Y", &p.Y)
	})
}

// Visit persists the vector as region name { X, Y, Z }.
func (p *Vector3) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := v.Float32("X", &p.X); err != nil {
			return err
		}
		if err := v.Float32("Y", &p.Y); err != nil {
			return err
		}
		return v.Float32("Z", &p.Z)
	})
}
