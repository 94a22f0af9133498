package rootscan

import (
	"fmt"

	"github.com/riftrunner/rootscan/dbginfo"
	"github.com/riftrunner/rootscan/regnum"
)

// LocOpKind classifies one decoded location-expression operator, per
// the two forms spec.md §4.5 recognizes.
type LocOpKind int

const (
	// LocOpFrameBaseOffset is address = frame.SP + Offset.
	LocOpFrameBaseOffset LocOpKind = iota
	// LocOpRegisterOffset is address = frame.Register(Reg) + Offset.
	LocOpRegisterOffset
	// LocOpOther is any operator outside the two supported forms; the
	// evaluator logs and skips the owning expression.
	LocOpOther
)

// LocOp is one decoded (operator, operand) pair.
type LocOp struct {
	Kind   LocOpKind
	Reg    RegNum // valid when Kind == LocOpRegisterOffset
	Offset int64  // valid when Kind == LocOpFrameBaseOffset or LocOpRegisterOffset
}

// LocationExpr is one range-qualified location expression: spec.md §3,
// "LocationExpr". A zero LoPC/HiPC pair means the expression is valid at
// every PC.
type LocationExpr struct {
	LoPC, HiPC uint64
	Ops        []LocOp
}

// validAt reports whether pc falls within this expression's validity
// range, treating a zero/zero range as "any" (spec.md §4.5).
func (e LocationExpr) validAt(pc uint64) bool {
	if e.LoPC == 0 && e.HiPC == 0 {
		return true
	}
	return pc >= e.LoPC && pc < e.HiPC
}

// DWARF single-byte location-expression opcodes this scanner
// understands. Interpreting any form beyond these two is explicitly out
// of scope (spec.md §1 non-goals); any other leading opcode decodes to
// LocOpOther and is logged and skipped by the evaluator.
const (
	dwOpFbreg     = 0x91
	dwOpBreg0     = 0x70
	dwOpBregLast  = 0x8f
	dwOpPlusUconst = 0x23
)

// decodeLocationExpr copies a raw location-list entry's expression bytes
// into an arena-owned LocationExpr, decoding its leading operator. The
// evaluator only ever consults the first operator of an expression
// (spec.md §4.5), so that is all this decodes; deep copying the operand
// data here is what satisfies spec.md §9's "Ownership of location
// expressions" requirement, since the source that produced raw.Expr may
// free it once this call returns.
func decodeLocationExpr(raw dbginfo.RawLocEntry) LocationExpr {
	expr := LocationExpr{LoPC: raw.LoPC, HiPC: raw.HiPC}
	if len(raw.Expr) == 0 {
		expr.Ops = []LocOp{{Kind: LocOpOther}}
		return expr
	}
	op := raw.Expr[0]
	rest := raw.Expr[1:]
	switch {
	case op == dwOpFbreg:
		off, _ := decodeSLEB128(rest)
		expr.Ops = []LocOp{{Kind: LocOpFrameBaseOffset, Offset: off}}
	case op >= dwOpBreg0 && op <= dwOpBregLast:
		off, _ := decodeSLEB128(rest)
		reg, ok := regnum.AMD64FromDWARF(int(op - dwOpBreg0))
		if !ok {
			expr.Ops = []LocOp{{Kind: LocOpOther}}
			break
		}
		expr.Ops = []LocOp{{Kind: LocOpRegisterOffset, Reg: reg, Offset: off}}
	default:
		expr.Ops = []LocOp{{Kind: LocOpOther}}
	}
	return expr
}

// decodeULEB128 decodes an unsigned little-endian base-128 integer,
// returning the value and the number of bytes consumed.
func decodeULEB128(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	var n int
	for n < len(b) {
		byt := b[n]
		n++
		result |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, n
}

// decodeSLEB128 decodes a signed little-endian base-128 integer,
// returning the value and the number of bytes consumed.
func decodeSLEB128(b []byte) (int64, int) {
	var result int64
	var shift uint
	var n int
	var byt byte
	for n < len(b) {
		byt = b[n]
		n++
		result |= int64(byt&0x7f) << shift
		shift += 7
		if byt&0x80 == 0 {
			break
		}
	}
	if shift < 64 && byt&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n
}

// decodeMemberOffset decodes a struct member's data-member-location
// attribute per spec.md §4.6. It returns ErrUnsupportedConstruct for a
// negative signed offset or any location-expression form other than a
// single plus_uconst operation.
func decodeMemberOffset(loc dbginfo.MemberLoc) (uint32, error) {
	switch loc.Form {
	case dbginfo.MemberLocUnsigned:
		return uint32(loc.Value), nil
	case dbginfo.MemberLocSigned:
		if loc.Signed < 0 {
			return 0, fmt.Errorf("%w: negative struct member offset %d", ErrUnsupportedConstruct, loc.Signed)
		}
		return uint32(loc.Signed), nil
	case dbginfo.MemberLocExprPlusUconst:
		return uint32(loc.Value), nil
	default:
		return 0, fmt.Errorf("%w: unsupported member-offset location expression", ErrUnsupportedConstruct)
	}
}
