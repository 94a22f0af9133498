package rootscan

import "fmt"

// TypeId is a dense nonnegative index into a Context's type table.
type TypeId int32

// BaseTypeId is the reserved sentinel denoting "base/opaque type": any
// non-pointer-bearing type that may still appear as a pointee (a base
// type, enum, typedef, or const that was never tabled because it
// carries no pointers of its own). spec.md §3, "TypeId".
const BaseTypeId TypeId = -1

// TypeRef is an unresolved cross-reference to a type. Before
// finalization it carries a debug-info byte offset; after finalization
// it carries a TypeId. Exactly one representation is valid at a time
// (spec.md §3, invariant I1).
type TypeRef struct {
	resolved bool
	offset   uint64 // valid when !resolved; 0 means "no target"
	id       TypeId // valid when resolved
}

// noTypeRef is the "no target" cross-reference, used e.g. for an
// untyped pointer's Target field.
var noTypeRef = TypeRef{}

func refFromOffset(offset uint64) TypeRef {
	return TypeRef{offset: offset}
}

// Resolved reports whether this reference has been compressed to a
// dense TypeId by the finalizer.
func (r TypeRef) Resolved() bool { return r.resolved }

// ID returns the resolved TypeId. It panics if the reference has not
// yet been finalized.
func (r TypeRef) ID() TypeId {
	if !r.resolved {
		panic("rootscan: TypeRef.ID called before finalization")
	}
	return r.id
}

// Offset returns the pre-finalization byte offset. It panics once the
// reference has been resolved.
func (r TypeRef) Offset() uint64 {
	if r.resolved {
		panic("rootscan: TypeRef.Offset called after finalization")
	}
	return r.offset
}

// HasTarget reports whether this reference names any target at all (an
// offset of zero, or nothing recorded, both mean "no target": see
// spec.md §4.7 pass 2).
func (r TypeRef) HasTarget() bool {
	if r.resolved {
		return true
	}
	return r.offset != 0
}

// Kind discriminates the tagged variant spec.md §3 describes for Type.
type Kind uint8

const (
	KindPointer Kind = iota
	KindStruct
	KindUnion
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StructMember is one retained (pointer-typed) field of a struct.
type StructMember struct {
	ByteOffset uint32
	Type       TypeRef
}

// Type is the tagged variant over Pointer/Struct/Union/Array from
// spec.md §3. Only one set of fields is meaningful, selected by Kind;
// this mirrors the teacher's internal/gocore/type.go, which also uses a
// single flat struct with a Kind discriminator rather than a Go sum
// type, because the fields genuinely do overlap in storage cost and the
// resolver only ever switches on Kind once per type.
type Type struct {
	Kind Kind

	// Pointer fields.
	Layers  uint16
	Untyped bool
	Target  TypeRef

	// Struct fields.
	Members []StructMember

	// Union fields.
	Alternatives []TypeRef

	// Array fields.
	Element TypeRef
	Count   uint32
}
