// Package visitor implements the persisted-state format: a tree of named
// regions, each holding typed named fields and child regions. The same
// Visit code path both writes and reads state, switching on IsReading.
package visitor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrRegionNotFound = errors.New("visitor: region not found")
	ErrFieldNotFound  = errors.New("visitor: field not found")
	ErrFieldKind      = errors.New("visitor: field kind mismatch")
	ErrUnbalanced     = errors.New("visitor: leave region at root")
	ErrCorrupt        = errors.New("visitor: corrupt data")
)

const (
	magic         = "FCVS"
	formatVersion = 1
	maxDepth      = 512
	rootName      = "__ROOT__"
)

// Kind tags the encoding of a field.
type Kind byte

const (
	KindBool Kind = iota + 1
	KindUint32
	KindUint64
	KindInt32
	KindFloat32
	KindFloat64
	KindString
	KindUUID
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUint32:
		return "u32"
	case KindUint64:
		return "u64"
	case KindInt32:
		return "i32"
	case KindFloat32:
		return "f32"
	case KindFloat64:
		return "f64"
	case KindString:
		return "string"
	case KindUUID:
		return "uuid"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// size is the fixed payload width of a kind, or -1 for variable width.
func (k Kind) size() int {
	switch k {
	case KindBool:
		return 1
	case KindUint32, KindInt32, KindFloat32:
		return 4
	case KindUint64, KindFloat64:
		return 8
	case KindUUID:
		return 16
	case KindString, KindData:
		return -1
	default:
		return 0
	}
}

type field struct {
	name string
	kind Kind
	data []byte
}

// node is one named region.
type node struct {
	name     string
	parent   *node
	fields   []field
	children []*node
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) field(name string) *field {
	for i := range n.fields {
		if n.fields[i].name == name {
			return &n.fields[i]
		}
	}
	return nil
}

// Visitable is implemented by every type that takes part in persisted state.
type Visitable interface {
	Visit(name string, v *Visitor) error
}

// Visitor walks a region tree in either write or read mode.
type Visitor struct {
	reading bool
	root    *node
	current *node
}

// NewWriter returns an empty visitor in write mode.
func NewWriter() *Visitor {
	root := &node{name: rootName}
	return &Visitor{root: root, current: root}
}

// NewReader decodes data and returns a visitor in read mode positioned at the root.
func NewReader(data []byte) (*Visitor, error) {
	root, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Visitor{reading: true, root: root, current: root}, nil
}

// Load reads all of r and decodes it.
func Load(r io.Reader) (*Visitor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return NewReader(data)
}

func (v *Visitor) IsReading() bool { return v.reading }

// EnterRegion moves the cursor into the named child region. When writing the
// region is created on first use; when reading it must exist.
func (v *Visitor) EnterRegion(name string) error {
	c := v.current.child(name)
	if c == nil {
		if v.reading {
			return fmt.Errorf("%w: %s", ErrRegionNotFound, v.path(name))
		}
		c = &node{name: name, parent: v.current}
		v.current.children = append(v.current.children, c)
	}
	v.current = c
	return nil
}

// LeaveRegion moves the cursor back to the parent region.
func (v *Visitor) LeaveRegion() error {
	if v.current.parent == nil {
		return ErrUnbalanced
	}
	v.current = v.current.parent
	return nil
}

// HasRegion reports whether the current region has a child with the given name.
func (v *Visitor) HasRegion(name string) bool {
	return v.current.child(name) != nil
}

// CheckLength rejects, in read mode, an element count larger than the
// number of entries the current region holds besides its Length field.
// Call it before allocating for n elements.
func (v *Visitor) CheckLength(n uint32) error {
	if !v.reading {
		return nil
	}
	held := len(v.current.fields) + len(v.current.children) - 1
	if int64(n) > int64(held) {
		return fmt.Errorf("%w: %s claims %d entries, region holds %d", ErrCorrupt, v.path("Length"), n, max(held, 0))
	}
	return nil
}

// path renders the cursor location for error messages.
func (v *Visitor) path(leaf string) string {
	var parts []string
	for n := v.current; n != nil && n.parent != nil; n = n.parent {
		parts = append(parts, n.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(append(parts, leaf), "/")
}

func (v *Visitor) write(name string, kind Kind, data []byte) {
	if f := v.current.field(name); f != nil {
		f.kind, f.data = kind, data
		return
	}
	v.current.fields = append(v.current.fields, field{name: name, kind: kind, data: data})
}

func (v *Visitor) read(name string, kind Kind) ([]byte, error) {
	f := v.current.field(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, v.path(name))
	}
	if f.kind != kind {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrFieldKind, v.path(name), f.kind, kind)
	}
	if sz := kind.size(); sz >= 0 && len(f.data) != sz {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrCorrupt, v.path(name), len(f.data))
	}
	return f.data, nil
}

func (v *Visitor) Bool(name string, p *bool) error {
	if v.reading {
		d, err := v.read(name, KindBool)
		if err != nil {
			return err
		}
		*p = d[0] != 0
		return nil
	}
	var b byte
	if *p {
		b = 1
	}
	v.write(name, KindBool, []byte{b})
	return nil
}

func (v *Visitor) Uint32(name string, p *uint32) error {
	if v.reading {
		d, err := v.read(name, KindUint32)
		if err != nil {
			return err
		}
		*p = binary.LittleEndian.Uint32(d)
		return nil
	}
	v.write(name, KindUint32, putU32(*p))
	return nil
}

func (v *Visitor) Uint64(name string, p *uint64) error {
	if v.reading {
		d, err := v.read(name, KindUint64)
		if err != nil {
			return err
		}
		*p = binary.LittleEndian.Uint64(d)
		return nil
	}
	v.write(name, KindUint64, putU64(*p))
	return nil
}

func (v *Visitor) Int32(name string, p *int32) error {
	if v.reading {
		d, err := v.read(name, KindInt32)
		if err != nil {
			return err
		}
		*p = int32(binary.LittleEndian.Uint32(d))
		return nil
	}
	v.write(name, KindInt32, putU32(uint32(*p)))
	return nil
}

func (v *Visitor) Float32(name string, p *float32) error {
	if v.reading {
		d, err := v.read(name, KindFloat32)
		if err != nil {
			return err
		}
		*p = math.Float32frombits(binary.LittleEndian.Uint32(d))
		return nil
	}
	v.write(name, KindFloat32, putF32(*p))
	return nil
}

func (v *Visitor) Float64(name string, p *float64) error {
	if v.reading {
		d, err := v.read(name, KindFloat64)
		if err != nil {
			return err
		}
		*p = math.Float64frombits(binary.LittleEndian.Uint64(d))
		return nil
	}
	v.write(name, KindFloat64, putF64(*p))
	return nil
}

func (v *Visitor) String(name string, p *string) error {
	if v.reading {
		d, err := v.read(name, KindString)
		if err != nil {
			return err
		}
		*p = string(d)
		return nil
	}
	v.write(name, KindString, []byte(*p))
	return nil
}

func (v *Visitor) UUID(name string, p *uuid.UUID) error {
	if v.reading {
		d, err := v.read(name, KindUUID)
		if err != nil {
			return err
		}
		copy(p[:], d)
		return nil
	}
	v.write(name, KindUUID, bytes.Clone(p[:]))
	return nil
}

// Data visits an opaque byte block.
func (v *Visitor) Data(name string, p *[]byte) error {
	if v.reading {
		d, err := v.read(name, KindData)
		if err != nil {
			return err
		}
		*p = bytes.Clone(d)
		return nil
	}
	v.write(name, KindData, bytes.Clone(*p))
	return nil
}

// Encode serializes the whole tree.
func (v *Visitor) Encode() []byte {
	w := newWriter()
	w.buf = append(w.buf, magic...)
	w.writeH(formatVersion)
	encodeNode(w, v.root)
	return w.bytes()
}

// Save writes the encoded tree to w.
func (v *Visitor) Save(w io.Writer) error {
	if _, err := w.Write(v.Encode()); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func encodeNode(w *writer, n *node) {
	w.writeS(n.name)
	w.writeD(uint32(len(n.fields)))
	for _, f := range n.fields {
		w.writeS(f.name)
		w.writeC(byte(f.kind))
		w.writeBytes(f.data)
	}
	w.writeD(uint32(len(n.children)))
	for _, c := range n.children {
		encodeNode(w, c)
	}
}

func decode(data []byte) (*node, error) {
	if len(data) < len(magic)+2 || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	r := newReader(data[len(magic):])
	if ver := r.readH(); ver != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, ver)
	}
	root, err := decodeNode(r, nil, 0)
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.remaining())
	}
	return root, nil
}

func decodeNode(r *reader, parent *node, depth int) (*node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: region nesting exceeds %d", ErrCorrupt, maxDepth)
	}
	n := &node{name: r.readS(), parent: parent}
	nf := r.readD()
	for i := uint32(0); i < nf && r.err == nil; i++ {
		f := field{name: r.readS(), kind: Kind(r.readC())}
		f.data = r.readBytes()
		n.fields = append(n.fields, f)
	}
	nc := r.readD()
	if r.err != nil {
		return nil, r.err
	}
	for i := uint32(0); i < nc; i++ {
		c, err := decodeNode(r, n, depth+1)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}
	return n, nil
}
