package rootscan

import (
	"fmt"

	"github.com/riftrunner/rootscan/dbginfo"
)

// stripTransparent follows typedef/const-qualifier wrapping to the
// underlying entry, per spec.md §9 "Transparent type layers": typedefs
// and const-qualifiers are semantically transparent for root scanning
// and are chased at read time rather than materialized in the type
// graph. A chain that dangles (names an offset this index has no entry
// for) stops at the last entry reached.
func stripTransparent(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) dbginfo.Entry {
	for e.Tag() == dbginfo.TagTypedef || e.Tag() == dbginfo.TagConstType {
		off, ok := e.TypeAttr()
		if !ok {
			return e
		}
		next, found := entryByOffset[off]
		if !found {
			return e
		}
		e = next
	}
	return e
}

// resolvePointerAttr decides whether e's static type (after stripping
// typedef/const per §9's resolution of the open question: "strip during
// variable reading before deciding pointer-ness") is a pointer type, and
// if so returns that pointer entry's own offset — the offset under which
// the pointer reader will have tabled its Type — for use as a TypeRef.
func resolvePointerAttr(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (offset uint64, isPointer bool) {
	typeOff, ok := e.TypeAttr()
	if !ok {
		return 0, false
	}
	target, found := entryByOffset[typeOff]
	if !found {
		return 0, false
	}
	stripped := stripTransparent(entryByOffset, target)
	if stripped.Tag() != dbginfo.TagPointerType {
		return 0, false
	}
	return stripped.Offset(), true
}

// readPointer implements the §4.3 pointer reader: repeatedly follow the
// type attribute while the chased entry is itself a pointer tag,
// counting layers of indirection, terminating either at an entry with no
// type attribute (untyped / void star) or at the first non-pointer
// entry (whose offset becomes target, uncollapsed — typedef/const
// stripping happens at finalization, not here).
func readPointer(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) Type {
	var layers uint16
	cur := e
	for {
		layers++
		typeOff, ok := cur.TypeAttr()
		if !ok {
			return Type{Kind: KindPointer, Layers: layers, Untyped: true}
		}
		next, found := entryByOffset[typeOff]
		if !found || next.Tag() != dbginfo.TagPointerType {
			return Type{Kind: KindPointer, Layers: layers, Untyped: false, Target: refFromOffset(typeOff)}
		}
		cur = next
	}
}

// readStruct implements the §4.3 struct reader.
func readStruct(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (Type, error) {
	var members []StructMember
	for _, child := range e.Children() {
		if child.Tag() != dbginfo.TagMember {
			continue
		}
		ptrOffset, isPointer := resolvePointerAttr(entryByOffset, child)
		if !isPointer {
			continue
		}
		loc, ok := child.DataMemberLocation()
		if !ok {
			return Type{}, fmt.Errorf("%w: struct member %#x has no data-member-location", ErrInvalidInput, child.Offset())
		}
		byteOffset, err := decodeMemberOffset(loc)
		if err != nil {
			return Type{}, fmt.Errorf("struct member %#x: %w", child.Offset(), err)
		}
		members = append(members, StructMember{ByteOffset: byteOffset, Type: refFromOffset(ptrOffset)})
	}
	return Type{Kind: KindStruct, Members: members}, nil
}

// readUnion implements the §4.3 union reader. A union with zero pointer
// alternatives is still valid and empty.
func readUnion(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (Type, error) {
	var alts []TypeRef
	for _, child := range e.Children() {
		if child.Tag() != dbginfo.TagMember {
			continue
		}
		ptrOffset, isPointer := resolvePointerAttr(entryByOffset, child)
		if !isPointer {
			continue
		}
		alts = append(alts, refFromOffset(ptrOffset))
	}
	return Type{Kind: KindUnion, Alternatives: alts}, nil
}

// readArray implements the §4.3 array reader: the element type comes
// directly from the entry's own type attribute (no typedef/const
// stripping — spec.md takes the attribute as-is here), and count is the
// child subrange entry's upper bound plus one.
func readArray(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (Type, error) {
	elemOff, ok := e.TypeAttr()
	if !ok {
		return Type{}, fmt.Errorf("%w: array type %#x has no element type attribute", ErrInvalidInput, e.Offset())
	}
	var sub dbginfo.Entry
	for _, child := range e.Children() {
		if child.Tag() == dbginfo.TagSubrangeType {
			sub = child
			break
		}
	}
	if sub == nil {
		return Type{}, fmt.Errorf("%w: array type %#x has no subrange child", ErrInvalidInput, e.Offset())
	}
	upper, ok := sub.UpperBound()
	if !ok {
		return Type{}, fmt.Errorf("%w: array type %#x subrange has no upper bound", ErrInvalidInput, e.Offset())
	}
	return Type{Kind: KindArray, Element: refFromOffset(elemOff), Count: uint32(upper) + 1}, nil
}
