package naming

import (
	"fmt"
	"sync"

	"github.com/chazu/toponame/pkg/kernel"
)

// enumTable is a bidirectional value/name table. Tables are built at package
// init and panic on an empty or duplicate name, so a broken table never
// survives startup.
type enumTable[T ~uint8 | ~uint16] struct {
	kind   string
	names  []string
	byName map[string]T
}

func newEnumTable[T ~uint8 | ~uint16](kind string, names ...string) *enumTable[T] {
	t := &enumTable[T]{kind: kind, byName: make(map[string]T, len(names))}
	for _, n := range names {
		if _, err := t.add(n); err != nil {
			panic(err)
		}
	}
	return t
}

func (t *enumTable[T]) add(name string) (T, error) {
	if name == "" {
		return 0, fmt.Errorf("%s: empty name", t.kind)
	}
	if _, dup := t.byName[name]; dup {
		return 0, fmt.Errorf("%s: duplicate name %q", t.kind, name)
	}
	v := T(len(t.names))
	t.names = append(t.names, name)
	t.byName[name] = v
	return v, nil
}

func (t *enumTable[T]) name(v T) string {
	if int(v) < len(t.names) {
		return t.names[int(v)]
	}
	return fmt.Sprintf("%s(%d)", t.kind, v)
}

func (t *enumTable[T]) parse(s string) (T, error) {
	v, ok := t.byName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownName, t.kind, s)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// ShapeType
// ---------------------------------------------------------------------------

// ShapeType is the kind of sub-shape a Reference names.
type ShapeType uint8

const (
	ShapeNone ShapeType = iota
	ShapeGeometry
	ShapeVertex
	ShapeEdge
	ShapeFace
)

var shapeTypes = newEnumTable[ShapeType]("ShapeType",
	"None", "Geometry", "Vertex", "Edge", "Face")

func (s ShapeType) String() string { return shapeTypes.name(s) }

// ParseShapeType returns the ShapeType with the given name.
func ParseShapeType(s string) (ShapeType, error) { return shapeTypes.parse(s) }

// ShapeTypeOf maps a kernel entity kind to its ShapeType.
func ShapeTypeOf(k kernel.Kind) ShapeType {
	switch k {
	case kernel.KindVertex:
		return ShapeVertex
	case kernel.KindEdge:
		return ShapeEdge
	case kernel.KindFace:
		return ShapeFace
	default:
		return ShapeNone
	}
}

// Kind maps s back to a kernel entity kind.
func (s ShapeType) Kind() (kernel.Kind, bool) {
	switch s {
	case ShapeVertex:
		return kernel.KindVertex, true
	case ShapeEdge:
		return kernel.KindEdge, true
	case ShapeFace:
		return kernel.KindFace, true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// Operation
// ---------------------------------------------------------------------------

// Operation tags the modeling operation that produced a sub-shape. The set
// is open: RegisterOperation adds values at runtime.
type Operation uint16

const (
	OpNone Operation = iota
	OpRepair
	OpTopology
	OpGeometry
	OpBox
	OpSphere
	OpCylinder
	OpTranslate
	OpRotate
	OpCompound
)

var (
	operationsMu sync.RWMutex
	operations   = newEnumTable[Operation]("Operation",
		"None", "Repair", "Topology", "Geometry", "Box", "Sphere",
		"Cylinder", "Translate", "Rotate", "Compound")
)

func (o Operation) String() string {
	operationsMu.RLock()
	defer operationsMu.RUnlock()
	return operations.name(o)
}

// ParseOperation returns the Operation with the given name.
func ParseOperation(s string) (Operation, error) {
	operationsMu.RLock()
	defer operationsMu.RUnlock()
	return operations.parse(s)
}

// RegisterOperation adds a new operation tag. Registering an existing name
// returns its value unchanged.
func RegisterOperation(name string) (Operation, error) {
	operationsMu.Lock()
	defer operationsMu.Unlock()
	if op, ok := operations.byName[name]; ok {
		return op, nil
	}
	if len(operations.names) > int(^Operation(0)) {
		return OpNone, fmt.Errorf("operation table full")
	}
	return operations.add(name)
}

// ---------------------------------------------------------------------------
// Type
// ---------------------------------------------------------------------------

// Type classifies how a sub-shape relates to its parents.
type Type uint8

const (
	TypeNone Type = iota
	TypeNew
	TypeGenerated
	TypeModified
	TypeConstructed
	TypeMerged
)

var types = newEnumTable[Type]("Type",
	"None", "New", "Generated", "Modified", "Constructed", "Merged")

func (t Type) String() string { return types.name(t) }

// ParseType returns the Type with the given name.
func ParseType(s string) (Type, error) { return types.parse(s) }

// ---------------------------------------------------------------------------
// Name
// ---------------------------------------------------------------------------

// Name is an optional semantic role of a sub-shape, independent of lineage.
type Name uint8

const (
	NameNone Name = iota
	NameTop
	NameBottom
	NameFront
	NameBack
	NameLeft
	NameRight
	NameStart
	NameEnd
)

var names = newEnumTable[Name]("Name",
	"None", "Top", "Bottom", "Front", "Back", "Left", "Right", "Start", "End")

func (n Name) String() string { return names.name(n) }

// ParseName returns the Name with the given string.
func ParseName(s string) (Name, error) { return names.parse(s) }

func init() {
	checkTable(shapeTypes, ShapeFace)
	checkTable(operations, OpCompound)
	checkTable(types, TypeMerged)
	checkTable(names, NameEnd)
}

// checkTable asserts that every constant up to last has exactly one name.
func checkTable[T ~uint8 | ~uint16](t *enumTable[T], last T) {
	if len(t.names) != int(last)+1 {
		panic(fmt.Sprintf("%s: %d names for %d values", t.kind, len(t.names), int(last)+1))
	}
	for i, n := range t.names {
		if v := t.byName[n]; int(v) != i {
			panic(fmt.Sprintf("%s: name %q maps to %d, want %d", t.kind, n, v, i))
		}
	}
}
