package rootscan

import (
	"fmt"

	"github.com/riftrunner/rootscan/dbginfo"
)

// readScopeRange implements the §4.4 "Scope PC range" algorithm: prefer
// an explicit low/high-PC pair (resolving the offset-from-low-PC form of
// high-PC), falling back to a ranges attribute. Per this repository's
// resolution of ranges-list ambiguity (DESIGN.md, Open Question
// decision 4), a concrete
// dbginfo.Source is expected to have already resolved DWARF5 rnglists
// and base-address selection into absolute offset-pair entries; any
// RangeKindBaseAddress or RangeKindOther entry reaching here is the
// unsupported-ranges-kind case §4.4 calls out, and multiple offset-pair
// entries fold into one overall [min(lo), max(hi)) span, since Scope
// stores a single range.
func readScopeRange(e dbginfo.Entry) (lo, hi uint64, err error) {
	if lopc, ok := e.LowPC(); ok {
		hipc, ok2 := e.HighPC()
		if !ok2 {
			return 0, 0, fmt.Errorf("%w: entry %#x has low-PC but no high-PC", ErrInvalidInput, e.Offset())
		}
		if hipc.IsOffset {
			return lopc, lopc + hipc.Value, nil
		}
		return lopc, hipc.Value, nil
	}

	ranges, ok := e.Ranges()
	if !ok {
		return 0, 0, fmt.Errorf("%w: entry %#x has neither low-PC nor a ranges attribute", ErrInvalidInput, e.Offset())
	}
	var lo_, hi_ uint64
	seen := false
	for _, re := range ranges {
		switch re.Kind {
		case dbginfo.RangeKindOffsetPair:
			if !seen {
				lo_, hi_, seen = re.Addr1, re.Addr2, true
				continue
			}
			if re.Addr1 < lo_ {
				lo_ = re.Addr1
			}
			if re.Addr2 > hi_ {
				hi_ = re.Addr2
			}
		case dbginfo.RangeKindEndOfList:
			// Terminator; nothing to fold.
		default:
			return 0, 0, fmt.Errorf("%w: entry %#x has an unsupported ranges-list entry kind", ErrUnsupportedConstruct, e.Offset())
		}
	}
	if !seen {
		return 0, 0, fmt.Errorf("%w: entry %#x ranges list has no offset-pair entries", ErrInvalidInput, e.Offset())
	}
	return lo_, hi_, nil
}

// readVariable implements the variable half of the §4.4 "Scope body"
// algorithm: a formal parameter or variable is retained only if its
// static type, after typedef/const stripping, is a pointer. Location
// data is copied out of the source's raw bytes immediately (§9,
// "Ownership of location expressions"), since decodeLocationExpr always
// allocates its own LocOp slice.
func readVariable(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (Variable, bool) {
	ptrOffset, isPointer := resolvePointerAttr(entryByOffset, e)
	if !isPointer {
		return Variable{}, false
	}
	name, _ := e.Name()
	v := Variable{Name: name, Type: refFromOffset(ptrOffset)}
	if rawLocs, ok := e.Location(); ok {
		v.Location = make([]LocationExpr, len(rawLocs))
		for i, rl := range rawLocs {
			v.Location[i] = decodeLocationExpr(rl)
		}
	}
	return v, true
}

// readScope implements the §4.4 "Scope body" algorithm: pointer-typed
// formal parameters/variables become Variables, lexical blocks recurse
// into child Scopes, everything else is ignored.
func readScope(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (*Scope, error) {
	lo, hi, err := readScopeRange(e)
	if err != nil {
		return nil, err
	}
	s := &Scope{LoPC: lo, HiPC: hi}
	for _, child := range e.Children() {
		switch child.Tag() {
		case dbginfo.TagFormalParameter, dbginfo.TagVariable:
			if v, ok := readVariable(entryByOffset, child); ok {
				s.Variables = append(s.Variables, v)
			}
		case dbginfo.TagLexicalBlock:
			childScope, err := readScope(entryByOffset, child)
			if err != nil {
				return nil, err
			}
			s.Children = append(s.Children, childScope)
		}
	}
	return s, nil
}

// readFunction implements the §4.4 contract: read one subprogram entry
// into a Function with a fully built Scope subtree.
func readFunction(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) (Function, error) {
	top, err := readScope(entryByOffset, e)
	if err != nil {
		return Function{}, err
	}
	name, _ := e.Name()
	return Function{Name: name, LoPC: top.LoPC, HiPC: top.HiPC, TopScope: *top}, nil
}
