// Package dbginfo is the contract the ingester consumes. It names the
// tag/attribute vocabulary and the tree-navigation shape of a debug-info
// source without committing to any concrete decoder: the decoder that
// produces these trees is explicitly out of scope for this repository
// (spec.md §1). A concrete implementation backed by the standard
// library's debug/dwarf package lives in dwarfsrc; tests build Source
// values directly as Go literals (see dbginfotest).
package dbginfo

import "fmt"

// Tag classifies a debug-info entry the way spec.md §4.2's dispatch table
// does.
type Tag int

const (
	TagUnknown Tag = iota
	TagCompileUnit
	TagSubprogram
	TagFormalParameter
	TagVariable
	TagLexicalBlock
	TagStructureType
	TagUnionType
	TagPointerType
	TagArrayType
	TagSubrangeType
	TagMember
	TagBaseType
	TagEnumerationType
	TagTypedef
	TagConstType
)

func (t Tag) String() string {
	switch t {
	case TagCompileUnit:
		return "compile_unit"
	case TagSubprogram:
		return "subprogram"
	case TagFormalParameter:
		return "formal_parameter"
	case TagVariable:
		return "variable"
	case TagLexicalBlock:
		return "lexical_block"
	case TagStructureType:
		return "structure_type"
	case TagUnionType:
		return "union_type"
	case TagPointerType:
		return "pointer_type"
	case TagArrayType:
		return "array_type"
	case TagSubrangeType:
		return "subrange_type"
	case TagMember:
		return "member"
	case TagBaseType:
		return "base_type"
	case TagEnumerationType:
		return "enumeration_type"
	case TagTypedef:
		return "typedef"
	case TagConstType:
		return "const_type"
	default:
		return fmt.Sprintf("tag(%d)", int(t))
	}
}

// Attr names an entry attribute.
type Attr int

const (
	AttrName Attr = iota
	AttrType
	AttrLowpc
	AttrHighpc
	AttrDataMemberLocation
	AttrUpperBound
	AttrLocation
	AttrRanges
)

// HighPC describes a resolved DW_AT_high_pc value: the original DWARF
// form may encode either an absolute address or an unsigned offset from
// low-PC (spec.md §4.4). The source resolves the form; the ingester only
// ever sees the two cases below.
type HighPC struct {
	// IsOffset is true when the attribute was encoded as an offset from
	// low-PC rather than an absolute address.
	IsOffset bool
	Value    uint64
}

// RangeKind classifies one entry of a DW_AT_ranges list.
type RangeKind int

const (
	RangeKindOffsetPair RangeKind = iota
	RangeKindBaseAddress
	RangeKindEndOfList
	RangeKindOther
)

// RangeEntry is one element of a resolved ranges list. Addr1/Addr2 are
// meaningful only for RangeKindOffsetPair and RangeKindBaseAddress
// (Addr2 is the new base). The ingester takes an offset pair as the
// absolute range [Addr1, Addr2): it adds no base address, so a Source
// must fold any base into the pair itself, and the ingester rejects
// RangeKindBaseAddress entries.
type RangeEntry struct {
	Kind  RangeKind
	Addr1 uint64
	Addr2 uint64
}

// MemberLocForm classifies how a struct member's DW_AT_data_member_location
// attribute was encoded, per spec.md §4.6.
type MemberLocForm int

const (
	// MemberLocUnsigned covers the fixed-width and ULEB unsigned encodings.
	MemberLocUnsigned MemberLocForm = iota
	// MemberLocSigned covers the signed encoding.
	MemberLocSigned
	// MemberLocExprPlusUconst covers a location-expression attribute whose
	// sole accepted form is a single DW_OP_plus_uconst operation.
	MemberLocExprPlusUconst
	// MemberLocUnsupportedExpr covers any other location-expression form.
	MemberLocUnsupportedExpr
)

// MemberLoc is the decoded form of a DW_AT_data_member_location attribute.
type MemberLoc struct {
	Form   MemberLocForm
	Signed int64  // valid when Form == MemberLocSigned
	Value  uint64 // valid when Form == MemberLocUnsigned or MemberLocExprPlusUconst
}

// RawLocEntry is one range-qualified location expression out of a
// location-list attribute, with its raw, undecoded DWARF expression
// bytes. A zero LoPC/HiPC pair means "valid at every PC" (spec.md §4.5).
type RawLocEntry struct {
	LoPC, HiPC uint64
	Expr       []byte
}

// Entry is one node of a debug-info tree: a tag plus typed attribute
// accessors. Implementations are read-only snapshots; the decoder that
// produced them may free its own backing storage once Source methods
// return, so callers that need to retain data (e.g. location expression
// bytes) must copy it out (spec.md "Ownership of location expressions").
type Entry interface {
	Tag() Tag
	// Offset is the entry's byte offset in the debug-info section. It is
	// globally unique and is the currency TypeRef cross-references are
	// expressed in before finalization.
	Offset() uint64
	Name() (string, bool)
	// TypeAttr returns the byte offset named by this entry's DW_AT_type
	// attribute, if present.
	TypeAttr() (offset uint64, ok bool)
	LowPC() (uint64, bool)
	HighPC() (HighPC, bool)
	Ranges() ([]RangeEntry, bool)
	UpperBound() (uint64, bool)
	DataMemberLocation() (MemberLoc, bool)
	// Location returns the raw per-range location expressions for a
	// variable or formal parameter's DW_AT_location attribute.
	Location() ([]RawLocEntry, bool)
	Children() []Entry
}

// Source is the opaque debug-info tree source the ingester consumes.
// spec.md §1 declares the decoder that implements this contract out of
// scope for the core; dwarfsrc supplies a concrete implementation over
// debug/dwarf, and dbginfotest supplies literal fakes for unit tests.
type Source interface {
	// CompileUnits returns the top-level compile-unit entries, in source
	// order. Each compile unit's Children are the top-level entries of
	// that translation unit, in sibling order.
	CompileUnits() ([]Entry, error)
}
