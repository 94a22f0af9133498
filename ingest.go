package rootscan

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/riftrunner/rootscan/dbginfo"
)

// builder accumulates types and functions during ingestion, before the
// finalizer (§4.7) compresses offset-keyed cross-references to dense
// indices. typeIndexByOffset is the "hash index from offset to TypeId
// built during ingestion" spec.md §4.7 explicitly allows in place of a
// linear search at finalize time.
type builder struct {
	types             *arena[Type]
	functions         *arena[Function]
	typeIndexByOffset map[uint64]int
	logger            *zap.Logger
}

func (b *builder) addType(offset uint64, t Type) {
	idx := b.types.append(t)
	b.typeIndexByOffset[offset] = idx
}

// indexEntries recursively records every entry in the tree by its byte
// offset, so type readers can resolve forward references and typedef/const
// chains regardless of declaration order (spec.md §9, "Dense vs. sparse
// type identity": "this two-stage design lets the reader be
// order-independent").
func indexEntries(index map[uint64]dbginfo.Entry, e dbginfo.Entry) {
	index[e.Offset()] = e
	for _, c := range e.Children() {
		indexEntries(index, c)
	}
}

// Ingest implements the §4.2 debug-info ingester: ingest(source) →
// Context. It walks every compilation unit's direct children, dispatching
// each by tag per the §4.2 table, then runs the §4.7 finalizer. logger
// may be nil, in which case ingestion is silent.
func Ingest(source dbginfo.Source, logger *zap.Logger) (*Context, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cus, err := source.CompileUnits()
	if err != nil {
		return nil, fmt.Errorf("rootscan: reading compile units: %w", err)
	}

	entryByOffset := make(map[uint64]dbginfo.Entry)
	for _, cu := range cus {
		indexEntries(entryByOffset, cu)
	}

	b := &builder{
		types:             newArena[Type](64),
		functions:         newArena[Function](64),
		typeIndexByOffset: make(map[uint64]int),
		logger:            logger,
	}

	for _, cu := range cus {
		for _, e := range cu.Children() {
			if err := b.ingestTopLevel(entryByOffset, e); err != nil {
				return nil, err
			}
		}
	}

	return finalize(b)
}

// ingestTopLevel dispatches one top-level compilation-unit child by tag,
// per the §4.2 table. Entries nested inside function bodies are not
// reached here; readFunction walks those itself to build the scope tree.
func (b *builder) ingestTopLevel(entryByOffset map[uint64]dbginfo.Entry, e dbginfo.Entry) error {
	switch e.Tag() {
	case dbginfo.TagSubprogram:
		fn, err := readFunction(entryByOffset, e)
		if err != nil {
			return err
		}
		b.functions.append(fn)

	case dbginfo.TagStructureType:
		t, err := readStruct(entryByOffset, e)
		if err != nil {
			return err
		}
		b.addType(e.Offset(), t)

	case dbginfo.TagUnionType:
		t, err := readUnion(entryByOffset, e)
		if err != nil {
			return err
		}
		b.addType(e.Offset(), t)

	case dbginfo.TagPointerType:
		b.addType(e.Offset(), readPointer(entryByOffset, e))

	case dbginfo.TagArrayType:
		t, err := readArray(entryByOffset, e)
		if err != nil {
			return err
		}
		b.addType(e.Offset(), t)

	case dbginfo.TagBaseType, dbginfo.TagEnumerationType, dbginfo.TagTypedef, dbginfo.TagConstType:
		// Base/opaque: deliberately never tabled. A TypeRef naming this
		// offset collapses to BaseTypeId at finalization (§4.7 pass 2).

	case dbginfo.TagVariable:
		// Top-level global variable: ignored (§4.2, "future: globals").

	default:
		b.logger.Debug("unrecognized top-level tag",
			zap.Stringer("tag", e.Tag()),
			zap.Uint64("offset", e.Offset()))
		return fmt.Errorf("%w: unrecognized top-level tag %s at offset %#x", ErrStructuralIntegrity, e.Tag(), e.Offset())
	}
	return nil
}
