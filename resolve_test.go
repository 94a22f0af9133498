package rootscan

import (
	"testing"

	"github.com/riftrunner/rootscan/dbginfo"
	"github.com/riftrunner/rootscan/dbginfo/dbginfotest"
	"github.com/riftrunner/rootscan/regnum"
)

func buildNestedScopeContext(t *testing.T) *Context {
	t.Helper()
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrType := dbginfotest.New(dbginfo.TagPointerType, 0x10).WithType(baseType)

	varA := dbginfotest.New(dbginfo.TagVariable, 0x101).WithName("a").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{Expr: fbregExpr(-8)})
	varB := dbginfotest.New(dbginfo.TagVariable, 0x102).WithName("b").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{Expr: fbregExpr(-16)})
	innerBlock := dbginfotest.New(dbginfo.TagLexicalBlock, 0x103).
		WithLowHigh(0x1010, 0x1018).WithChildren(varB)
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("f").
		WithLowHigh(0x1000, 0x1020).WithChildren(varA, innerBlock)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrType, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return ctx
}

func TestResolveNestedLexicalBlockInScope(t *testing.T) {
	ctx := buildNestedScopeContext(t)
	stack := CallStack{&testFrame{pc: 0x1014, sp: 0x7000}}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 2 {
		t.Fatalf("roots = %+v, want 2 (both a and b in scope inside the inner block)", roots)
	}
	addrs := map[Word]bool{roots[0].Address: true, roots[1].Address: true}
	if !addrs[Word(0x7000-8)] || !addrs[Word(0x7000-16)] {
		t.Fatalf("roots = %+v, want addresses sp-8 and sp-16", roots)
	}
}

func TestResolveOutsideLexicalBlockOnlyOuterScope(t *testing.T) {
	ctx := buildNestedScopeContext(t)
	stack := CallStack{&testFrame{pc: 0x1004, sp: 0x7000}}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 1 || roots[0].Address != Word(0x7000-8) {
		t.Fatalf("roots = %+v, want exactly one root at sp-8", roots)
	}
}

func TestResolveForeignFrameIsSkippedNotError(t *testing.T) {
	ctx := buildNestedScopeContext(t)
	stack := CallStack{
		&testFrame{pc: 0xdeadbeef, sp: 0x9000}, // no function covers this pc
		&testFrame{pc: 0x1004, sp: 0x7000},
	}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 1 || roots[0].Address != Word(0x7000-8) {
		t.Fatalf("roots = %+v, want exactly one root, from the second (managed) frame only", roots)
	}
}

func TestResolveRegisterOffsetLocation(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrType := dbginfotest.New(dbginfo.TagPointerType, 0x10).WithType(baseType)
	v := dbginfotest.New(dbginfo.TagVariable, 0x101).WithName("p").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{Expr: bregExpr(6, 16)}) // breg6 = rbp
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("f").
		WithLowHigh(0x1000, 0x1020).WithChildren(v)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrType, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	rbp, ok := regnum.AMD64FromDWARF(6)
	if !ok {
		t.Fatal("AMD64FromDWARF(6) should resolve to rbp")
	}
	stack := CallStack{&testFrame{pc: 0x1004, sp: 0x7000, regs: map[RegNum]Word{rbp: 0x8000}}}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 1 || roots[0].Address != Word(0x8000+16) {
		t.Fatalf("roots = %+v, want exactly one root at rbp+16", roots)
	}
}

func TestResolveVariableWithUnknownRegisterIsSkipped(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrType := dbginfotest.New(dbginfo.TagPointerType, 0x10).WithType(baseType)
	v := dbginfotest.New(dbginfo.TagVariable, 0x101).WithName("p").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{Expr: bregExpr(6, 16)})
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("f").
		WithLowHigh(0x1000, 0x1020).WithChildren(v)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrType, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// No rbp entry in this frame's register map: the unwinder could not
	// recover it this far up the stack, so the variable must be skipped
	// rather than producing a garbage root.
	stack := CallStack{&testFrame{pc: 0x1004, sp: 0x7000, regs: map[RegNum]Word{}}}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 0 {
		t.Fatalf("roots = %+v, want none (the only variable's register is unrecoverable)", roots)
	}
}

func TestResolveVariableOutOfLocationRangeIsSkipped(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrType := dbginfotest.New(dbginfo.TagPointerType, 0x10).WithType(baseType)
	v := dbginfotest.New(dbginfo.TagVariable, 0x101).WithName("p").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{LoPC: 0x1000, HiPC: 0x1008, Expr: fbregExpr(-8)})
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("f").
		WithLowHigh(0x1000, 0x1020).WithChildren(v)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrType, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// pc 0x1010 falls outside the variable's [0x1000, 0x1008) validity
	// range, but still inside the function: the variable simply isn't
	// live yet/anymore at this pc.
	stack := CallStack{&testFrame{pc: 0x1010, sp: 0x7000}}
	roots := Resolve(stack, ctx, nil)
	if len(roots) != 0 {
		t.Fatalf("roots = %+v, want none (pc is outside the variable's location range)", roots)
	}
}
