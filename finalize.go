package rootscan

import (
	"fmt"
	"sort"
)

// finalize implements the §4.7 Context finalizer's three passes. Pass 1
// (index assignment) is implicit: a type's position in the arena already
// is its TypeId. Pass 2 (reference compression) rewrites every TypeRef
// reachable from the graph from offset form to index form. Pass 3
// (function sort) orders functions by (lo_pc, hi_pc) and rejects
// overlapping ranges (invariant I2).
func finalize(b *builder) (*Context, error) {
	types := b.types.slice()
	for i := range types {
		finalizeType(&types[i], b.typeIndexByOffset)
	}

	funcs := b.functions.slice()
	for i := range funcs {
		finalizeScope(&funcs[i].TopScope, b.typeIndexByOffset)
	}

	sort.Slice(funcs, func(i, j int) bool {
		if funcs[i].LoPC != funcs[j].LoPC {
			return funcs[i].LoPC < funcs[j].LoPC
		}
		return funcs[i].HiPC < funcs[j].HiPC
	})

	// Sorted by (lo_pc, hi_pc) ascending, any containment or overlap shows
	// up as an adjacent pair with Lo_{i+1} < Hi_i: Lo is non-decreasing
	// across the slice, so no overlap can skip past an adjacent pair
	// undetected.
	for i := 0; i+1 < len(funcs); i++ {
		if funcs[i+1].LoPC < funcs[i].HiPC {
			return nil, fmt.Errorf("%w: functions %q [%#x,%#x) and %q [%#x,%#x) overlap",
				ErrStructuralIntegrity,
				funcs[i].Name, funcs[i].LoPC, funcs[i].HiPC,
				funcs[i+1].Name, funcs[i+1].LoPC, funcs[i+1].HiPC)
		}
	}

	return &Context{types: types, functions: funcs}, nil
}

// resolveRef compresses one offset-form TypeRef to index form. An offset
// of zero ("no target") and an offset with no tabled type both resolve to
// BaseTypeId: the former is never actually consulted by a caller (it only
// arises for an untyped pointer's Target, which Type.Untyped already
// marks as meaningless), and the latter is the expected case for base
// types, enums, typedefs, and consts (§4.7 pass 2).
func resolveRef(ref TypeRef, byOffset map[uint64]int) TypeRef {
	if ref.resolved {
		return ref
	}
	if ref.offset != 0 {
		if idx, ok := byOffset[ref.offset]; ok {
			return TypeRef{resolved: true, id: TypeId(idx)}
		}
	}
	return TypeRef{resolved: true, id: BaseTypeId}
}

func finalizeType(t *Type, byOffset map[uint64]int) {
	switch t.Kind {
	case KindPointer:
		if !t.Untyped {
			t.Target = resolveRef(t.Target, byOffset)
		}
	case KindStruct:
		for i := range t.Members {
			t.Members[i].Type = resolveRef(t.Members[i].Type, byOffset)
		}
	case KindUnion:
		for i := range t.Alternatives {
			t.Alternatives[i] = resolveRef(t.Alternatives[i], byOffset)
		}
	case KindArray:
		t.Element = resolveRef(t.Element, byOffset)
	}
}

func finalizeScope(s *Scope, byOffset map[uint64]int) {
	for i := range s.Variables {
		s.Variables[i].Type = resolveRef(s.Variables[i].Type, byOffset)
	}
	for _, c := range s.Children {
		finalizeScope(c, byOffset)
	}
}
