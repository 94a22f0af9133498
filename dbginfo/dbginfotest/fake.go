// Package dbginfotest builds literal dbginfo.Source/dbginfo.Entry trees
// for unit tests, standing in for a compiled binary and its debug
// information. This mirrors the teacher's internal/gocore/gocore_test.go
// in spirit (build a known fixture, assert on the Context/roots it
// produces) without needing a real compiler and core-dump pipeline: the
// ingester's contract is expressed entirely in terms of dbginfo.Entry, so
// a hand-built tree exercises it just as faithfully as a real DWARF
// section would.
package dbginfotest

import "github.com/riftrunner/rootscan/dbginfo"

// Entry is a mutable, literal implementation of dbginfo.Entry for test
// fixtures.
type Entry struct {
	TagV      dbginfo.Tag
	OffsetV   uint64
	NameV     string
	HasName   bool
	TypeV     uint64
	HasType   bool
	LowPCV    uint64
	HasLowPC  bool
	HighPCV   dbginfo.HighPC
	HasHighPC bool
	RangesV   []dbginfo.RangeEntry
	HasRanges bool
	UpperB    uint64
	HasUpperB bool
	MemberLoc dbginfo.MemberLoc
	HasMember bool
	Loc       []dbginfo.RawLocEntry
	HasLoc    bool
	Kids      []dbginfo.Entry
}

func (e *Entry) Tag() dbginfo.Tag    { return e.TagV }
func (e *Entry) Offset() uint64      { return e.OffsetV }
func (e *Entry) Children() []dbginfo.Entry { return e.Kids }

func (e *Entry) Name() (string, bool) { return e.NameV, e.HasName }

func (e *Entry) TypeAttr() (uint64, bool) { return e.TypeV, e.HasType }

func (e *Entry) LowPC() (uint64, bool) { return e.LowPCV, e.HasLowPC }

func (e *Entry) HighPC() (dbginfo.HighPC, bool) { return e.HighPCV, e.HasHighPC }

func (e *Entry) Ranges() ([]dbginfo.RangeEntry, bool) { return e.RangesV, e.HasRanges }

func (e *Entry) UpperBound() (uint64, bool) { return e.UpperB, e.HasUpperB }

func (e *Entry) DataMemberLocation() (dbginfo.MemberLoc, bool) { return e.MemberLoc, e.HasMember }

func (e *Entry) Location() ([]dbginfo.RawLocEntry, bool) { return e.Loc, e.HasLoc }

// Source is a literal implementation of dbginfo.Source: a fixed list of
// compile units.
type Source struct {
	CUs []dbginfo.Entry
}

func (s *Source) CompileUnits() ([]dbginfo.Entry, error) { return s.CUs, nil }

// WithType sets the entry's DW_AT_type-equivalent attribute to the given
// target entry's offset.
func (e *Entry) WithType(target *Entry) *Entry {
	e.TypeV, e.HasType = target.OffsetV, true
	return e
}

// WithLowHigh sets an absolute low/high PC range.
func (e *Entry) WithLowHigh(lo, hi uint64) *Entry {
	e.LowPCV, e.HasLowPC = lo, true
	e.HighPCV, e.HasHighPC = dbginfo.HighPC{IsOffset: false, Value: hi}, true
	return e
}

// WithLowHighOffset sets a low-PC plus an offset-form high-PC.
func (e *Entry) WithLowHighOffset(lo, offset uint64) *Entry {
	e.LowPCV, e.HasLowPC = lo, true
	e.HighPCV, e.HasHighPC = dbginfo.HighPC{IsOffset: true, Value: offset}, true
	return e
}

// WithName sets the entry's name attribute.
func (e *Entry) WithName(name string) *Entry {
	e.NameV, e.HasName = name, true
	return e
}

// WithChildren appends children to the entry.
func (e *Entry) WithChildren(kids ...*Entry) *Entry {
	for _, k := range kids {
		e.Kids = append(e.Kids, k)
	}
	return e
}

// WithLoc sets a location-list attribute from raw expressions.
func (e *Entry) WithLoc(entries ...dbginfo.RawLocEntry) *Entry {
	e.Loc, e.HasLoc = entries, true
	return e
}

// WithUpperBound sets a subrange's upper-bound attribute.
func (e *Entry) WithUpperBound(v uint64) *Entry {
	e.UpperB, e.HasUpperB = v, true
	return e
}

// WithMemberOffset sets a struct member's data-member-location attribute
// to a plain unsigned byte offset.
func (e *Entry) WithMemberOffset(v uint64) *Entry {
	e.MemberLoc = dbginfo.MemberLoc{Form: dbginfo.MemberLocUnsigned, Value: v}
	e.HasMember = true
	return e
}

// WithMemberOffsetExpr sets a struct member's data-member-location
// attribute to a single-operation plus_uconst location expression.
func (e *Entry) WithMemberOffsetExpr(v uint64) *Entry {
	e.MemberLoc = dbginfo.MemberLoc{Form: dbginfo.MemberLocExprPlusUconst, Value: v}
	e.HasMember = true
	return e
}

// WithMemberOffsetSigned sets a struct member's data-member-location
// attribute to a signed offset (used to exercise the negative-offset
// error path).
func (e *Entry) WithMemberOffsetSigned(v int64) *Entry {
	e.MemberLoc = dbginfo.MemberLoc{Form: dbginfo.MemberLocSigned, Signed: v}
	e.HasMember = true
	return e
}

// New creates a bare entry of the given tag at the given offset.
func New(tag dbginfo.Tag, offset uint64) *Entry {
	return &Entry{TagV: tag, OffsetV: offset}
}
