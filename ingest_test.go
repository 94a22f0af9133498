package rootscan

import (
	"errors"
	"testing"

	"github.com/riftrunner/rootscan/dbginfo"
	"github.com/riftrunner/rootscan/dbginfo/dbginfotest"
)

func TestIngestSinglePointerVariable(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrType := dbginfotest.New(dbginfo.TagPointerType, 0x10).WithType(baseType)
	v := dbginfotest.New(dbginfo.TagVariable, 0x110).WithName("p").WithType(ptrType).
		WithLoc(dbginfo.RawLocEntry{Expr: fbregExpr(-8)})
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("main").
		WithLowHigh(0x1000, 0x1020).WithChildren(v)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrType, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if ctx.NumTypes() != 1 {
		t.Fatalf("NumTypes() = %d, want 1", ctx.NumTypes())
	}
	typ := ctx.Type(0)
	if typ.Kind != KindPointer || typ.Layers != 1 || typ.Untyped {
		t.Fatalf("type = %+v, want a typed single-layer pointer", typ)
	}
	if typ.Target.ID() != BaseTypeId {
		t.Fatalf("pointer target = %v, want BaseTypeId (base_type is never tabled)", typ.Target.ID())
	}

	if ctx.NumFunctions() != 1 {
		t.Fatalf("NumFunctions() = %d, want 1", ctx.NumFunctions())
	}
	got := ctx.FunctionAt(0)
	if len(got.TopScope.Variables) != 1 || got.TopScope.Variables[0].Name != "p" {
		t.Fatalf("function variables = %+v, want one variable named p", got.TopScope.Variables)
	}
}

func TestIngestLinkedListIsCyclic(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	structNode := dbginfotest.New(dbginfo.TagStructureType, 0x20).WithName("Node")
	ptrNext := dbginfotest.New(dbginfo.TagPointerType, 0x30).WithType(structNode)
	memberX := dbginfotest.New(dbginfo.TagMember, 0x21).WithName("x").WithType(baseType).WithMemberOffset(0)
	memberNext := dbginfotest.New(dbginfo.TagMember, 0x22).WithName("next").WithType(ptrNext).WithMemberOffset(8)
	structNode.WithChildren(memberX, memberNext)

	head := dbginfotest.New(dbginfo.TagVariable, 0x210).WithName("head").WithType(ptrNext).
		WithLoc(dbginfo.RawLocEntry{Expr: fbregExpr(-8)})
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x200).WithName("walk").
		WithLowHigh(0x2000, 0x2040).WithChildren(head)

	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, structNode, ptrNext, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var ptrId, structId TypeId
	found := 0
	for i := 0; i < ctx.NumTypes(); i++ {
		switch ctx.Type(TypeId(i)).Kind {
		case KindPointer:
			ptrId = TypeId(i)
			found++
		case KindStruct:
			structId = TypeId(i)
			found++
		}
	}
	if found != 2 {
		t.Fatalf("expected exactly one pointer type and one struct type, got %d tagged types", found)
	}

	ptr := ctx.Type(ptrId)
	if ptr.Target.ID() != structId {
		t.Fatalf("pointer target = %v, want the Node struct %v", ptr.Target.ID(), structId)
	}
	st := ctx.Type(structId)
	if len(st.Members) != 1 || st.Members[0].ByteOffset != 8 {
		t.Fatalf("struct members = %+v, want one member at offset 8", st.Members)
	}
	if st.Members[0].Type.ID() != ptrId {
		t.Fatalf("struct member type = %v, want the cycle to close back on %v", st.Members[0].Type.ID(), ptrId)
	}
}

func TestIngestVoidPointerChain(t *testing.T) {
	inner := dbginfotest.New(dbginfo.TagPointerType, 0x41) // void*, no type attribute
	outer := dbginfotest.New(dbginfo.TagPointerType, 0x40).WithType(inner)

	vp := dbginfotest.New(dbginfo.TagVariable, 0x410).WithName("vp").WithType(outer).
		WithLoc(dbginfo.RawLocEntry{Expr: bregExpr(6, 16)})
	fn := dbginfotest.New(dbginfo.TagSubprogram, 0x400).WithName("f").
		WithLowHigh(0x4000, 0x4040).WithChildren(vp)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(inner, outer, fn)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var outerType Type
	for i := 0; i < ctx.NumTypes(); i++ {
		if typ := ctx.Type(TypeId(i)); typ.Layers == 2 {
			outerType = typ
		}
	}
	if outerType.Kind != KindPointer || !outerType.Untyped || outerType.Layers != 2 {
		t.Fatalf("outer pointer type = %+v, want a 2-layer untyped pointer", outerType)
	}
}

func TestIngestUnionOfPointersSkipsNonPointerMembers(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	ptrToInt := dbginfotest.New(dbginfo.TagPointerType, 0x52).WithType(baseType)
	union := dbginfotest.New(dbginfo.TagUnionType, 0x51)
	memberA := dbginfotest.New(dbginfo.TagMember, 0x53).WithName("a").WithType(ptrToInt).WithMemberOffset(0)
	memberB := dbginfotest.New(dbginfo.TagMember, 0x54).WithName("b").WithType(baseType).WithMemberOffset(0)
	union.WithChildren(memberA, memberB)
	ptrToUnion := dbginfotest.New(dbginfo.TagPointerType, 0x50).WithType(union)

	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, ptrToInt, union, ptrToUnion)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var unionType Type
	found := false
	for i := 0; i < ctx.NumTypes(); i++ {
		if typ := ctx.Type(TypeId(i)); typ.Kind == KindUnion {
			unionType, found = typ, true
		}
	}
	if !found {
		t.Fatal("no union type was tabled")
	}
	if len(unionType.Alternatives) != 1 {
		t.Fatalf("union alternatives = %+v, want exactly one (the non-pointer member must be skipped)", unionType.Alternatives)
	}
}

func TestIngestArrayWithoutUpperBoundIsInvalidInput(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	sub := dbginfotest.New(dbginfo.TagSubrangeType, 0x61) // no upper bound set
	arr := dbginfotest.New(dbginfo.TagArrayType, 0x60).WithType(baseType).WithChildren(sub)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, arr)

	_, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Ingest error = %v, want ErrInvalidInput", err)
	}
}

func TestIngestArrayCount(t *testing.T) {
	baseType := dbginfotest.New(dbginfo.TagBaseType, 0x05).WithName("int")
	sub := dbginfotest.New(dbginfo.TagSubrangeType, 0x61).WithUpperBound(3)
	arr := dbginfotest.New(dbginfo.TagArrayType, 0x60).WithType(baseType).WithChildren(sub)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(baseType, arr)

	ctx, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if ctx.NumTypes() != 1 || ctx.Type(0).Count != 4 {
		t.Fatalf("array type = %+v, want Count 4 (upper bound 3 + 1)", ctx.Type(0))
	}
}

func TestIngestUnrecognizedTopLevelTagIsStructuralIntegrity(t *testing.T) {
	weird := dbginfotest.New(dbginfo.TagUnknown, 0x70)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(weird)

	_, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if !errors.Is(err, ErrStructuralIntegrity) {
		t.Fatalf("Ingest error = %v, want ErrStructuralIntegrity", err)
	}
}

func TestIngestOverlappingFunctionsIsStructuralIntegrity(t *testing.T) {
	f1 := dbginfotest.New(dbginfo.TagSubprogram, 0x100).WithName("f1").WithLowHigh(0x1000, 0x1100)
	f2 := dbginfotest.New(dbginfo.TagSubprogram, 0x200).WithName("f2").WithLowHigh(0x1050, 0x1200)
	cu := dbginfotest.New(dbginfo.TagCompileUnit, 0).WithChildren(f1, f2)

	_, err := Ingest(&dbginfotest.Source{CUs: []dbginfo.Entry{cu}}, nil)
	if !errors.Is(err, ErrStructuralIntegrity) {
		t.Fatalf("Ingest error = %v, want ErrStructuralIntegrity", err)
	}
}
