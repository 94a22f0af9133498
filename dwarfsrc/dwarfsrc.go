// Package dwarfsrc adapts the standard library's debug/dwarf and
// debug/elf packages to the dbginfo.Source contract (SPEC_FULL.md §2):
// the one concrete debug-info decoder this repository ships, grounded in
// internal/gocore/dwarf.go's use of *dwarf.Reader (r.Next(), tag switch,
// e.Val(attr)).
package dwarfsrc

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/riftrunner/rootscan/dbginfo"
)

// Source is a dbginfo.Source backed by one ELF binary's DWARF section
// group.
type Source struct {
	data    *dwarf.Data
	locData []byte
	ptrSize int
	order   binary.ByteOrder
}

// Open reads debug information from the ELF binary at path.
func Open(path string) (*Source, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dwarfsrc: opening %s: %w", path, err)
	}
	defer f.Close()

	d, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("dwarfsrc: reading DWARF from %s: %w", path, err)
	}

	var locData []byte
	if sec := f.Section(".debug_loc"); sec != nil {
		locData, err = sec.Data()
		if err != nil {
			return nil, fmt.Errorf("dwarfsrc: reading .debug_loc from %s: %w", path, err)
		}
	}

	ptrSize := 8
	if f.Class == elf.ELFCLASS32 {
		ptrSize = 4
	}

	return &Source{data: d, locData: locData, ptrSize: ptrSize, order: f.ByteOrder}, nil
}

// CompileUnits implements dbginfo.Source.
func (s *Source) CompileUnits() ([]dbginfo.Entry, error) {
	r := s.data.Reader()
	var cus []dbginfo.Entry
	for {
		die, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("dwarfsrc: %w", err)
		}
		if die == nil {
			return cus, nil
		}
		if die.Tag != dwarf.TagCompileUnit && die.Tag != dwarf.TagPartialUnit {
			continue
		}
		var kids []dbginfo.Entry
		if die.Children {
			kids, err = s.readChildren(r)
			if err != nil {
				return nil, err
			}
		}
		cus = append(cus, &entry{src: s, die: die, kids: kids})
	}
}

// readChildren reads one sibling-chain of entries (and recursively their
// own children), stopping at the null entry that terminates the chain,
// matching how debug/dwarf linearizes a DIE tree (§Reader.Next).
func (s *Source) readChildren(r *dwarf.Reader) ([]dbginfo.Entry, error) {
	var kids []dbginfo.Entry
	for {
		die, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("dwarfsrc: %w", err)
		}
		if die == nil || die.Tag == 0 {
			return kids, nil
		}
		var grandkids []dbginfo.Entry
		if die.Children {
			grandkids, err = s.readChildren(r)
			if err != nil {
				return nil, err
			}
		}
		kids = append(kids, &entry{src: s, die: die, kids: grandkids})
	}
}

const dwOpPlusUconst = 0x23

// readULEB128 is a standalone copy of the ULEB128 decode rootscan's
// location.go implements, kept local since this package must not import
// from rootscan (dbginfo sits below it in the dependency graph).
func readULEB128(b []byte) uint64 {
	var result uint64
	var shift uint
	for _, by := range b {
		result |= uint64(by&0x7f) << shift
		if by&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result
}

// readLocList decodes a classic DWARF2-4 .debug_loc location list
// starting at offset, following golang-debug's now-retired
// third_party/delve loclist reader shape (begin/end address pair, a
// 0xfff..f begin address marking a base-address-selection entry, a (0,0)
// pair marking end-of-list, otherwise a uint16 expression length and the
// expression bytes). DWARF5's .debug_loclists encoding is not handled;
// a location attribute in that form is reported as absent.
func (s *Source) readLocList(offset int64) ([]dbginfo.RawLocEntry, bool) {
	if s.locData == nil || offset < 0 || int(offset) >= len(s.locData) {
		return nil, false
	}
	b := s.locData[offset:]
	maxAddr := uint64(0xffffffffffffffff)
	if s.ptrSize == 4 {
		maxAddr = 0xffffffff
	}
	readAddr := func(buf []byte) uint64 {
		if s.ptrSize == 4 {
			return uint64(s.order.Uint32(buf))
		}
		return s.order.Uint64(buf)
	}

	var out []dbginfo.RawLocEntry
	var base uint64
	for len(b) >= 2*s.ptrSize {
		begin := readAddr(b)
		b = b[s.ptrSize:]
		end := readAddr(b)
		b = b[s.ptrSize:]
		if begin == 0 && end == 0 {
			break
		}
		if begin == maxAddr {
			base = end
			continue
		}
		if len(b) < 2 {
			break
		}
		length := s.order.Uint16(b)
		b = b[2:]
		if len(b) < int(length) {
			break
		}
		expr := append([]byte(nil), b[:length]...)
		b = b[length:]
		out = append(out, dbginfo.RawLocEntry{LoPC: begin + base, HiPC: end + base, Expr: expr})
	}
	return out, true
}

// entry adapts one *dwarf.Entry to dbginfo.Entry.
type entry struct {
	src  *Source
	die  *dwarf.Entry
	kids []dbginfo.Entry
}

func (e *entry) Tag() dbginfo.Tag          { return convertTag(e.die.Tag) }
func (e *entry) Offset() uint64            { return uint64(e.die.Offset) }
func (e *entry) Children() []dbginfo.Entry { return e.kids }

func (e *entry) Name() (string, bool) {
	v, ok := e.die.Val(dwarf.AttrName).(string)
	return v, ok
}

func (e *entry) TypeAttr() (uint64, bool) {
	off, ok := e.die.Val(dwarf.AttrType).(dwarf.Offset)
	return uint64(off), ok
}

func (e *entry) LowPC() (uint64, bool) {
	v, ok := e.die.Val(dwarf.AttrLowpc).(uint64)
	return v, ok
}

func (e *entry) HighPC() (dbginfo.HighPC, bool) {
	f := e.die.AttrField(dwarf.AttrHighpc)
	if f == nil {
		return dbginfo.HighPC{}, false
	}
	switch f.Class {
	case dwarf.ClassAddress:
		v, ok := f.Val.(uint64)
		if !ok {
			return dbginfo.HighPC{}, false
		}
		return dbginfo.HighPC{IsOffset: false, Value: v}, true
	case dwarf.ClassConstant:
		v, ok := f.Val.(int64)
		if !ok {
			return dbginfo.HighPC{}, false
		}
		return dbginfo.HighPC{IsOffset: true, Value: uint64(v)}, true
	default:
		return dbginfo.HighPC{}, false
	}
}

func (e *entry) Ranges() ([]dbginfo.RangeEntry, bool) {
	pairs, err := e.src.data.Ranges(e.die)
	if err != nil || len(pairs) == 0 {
		return nil, false
	}
	out := make([]dbginfo.RangeEntry, 0, len(pairs)+1)
	for _, p := range pairs {
		out = append(out, dbginfo.RangeEntry{Kind: dbginfo.RangeKindOffsetPair, Addr1: p[0], Addr2: p[1]})
	}
	out = append(out, dbginfo.RangeEntry{Kind: dbginfo.RangeKindEndOfList})
	return out, true
}

func (e *entry) UpperBound() (uint64, bool) {
	v, ok := e.die.Val(dwarf.AttrUpperBound).(int64)
	if !ok || v < 0 {
		return 0, false
	}
	return uint64(v), true
}

// DataMemberLocation distinguishes the unsigned/signed cases by the sign
// of the decoded constant, since debug/dwarf does not itself preserve
// the DWARF form's signedness beyond the Go value it produces.
func (e *entry) DataMemberLocation() (dbginfo.MemberLoc, bool) {
	f := e.die.AttrField(dwarf.AttrDataMemberLoc)
	if f == nil {
		return dbginfo.MemberLoc{}, false
	}
	switch v := f.Val.(type) {
	case int64:
		if v < 0 {
			return dbginfo.MemberLoc{Form: dbginfo.MemberLocSigned, Signed: v}, true
		}
		return dbginfo.MemberLoc{Form: dbginfo.MemberLocUnsigned, Value: uint64(v)}, true
	case []byte:
		if len(v) >= 1 && v[0] == dwOpPlusUconst {
			return dbginfo.MemberLoc{Form: dbginfo.MemberLocExprPlusUconst, Value: readULEB128(v[1:])}, true
		}
		return dbginfo.MemberLoc{Form: dbginfo.MemberLocUnsupportedExpr}, true
	default:
		return dbginfo.MemberLoc{}, false
	}
}

func (e *entry) Location() ([]dbginfo.RawLocEntry, bool) {
	f := e.die.AttrField(dwarf.AttrLocation)
	if f == nil {
		return nil, false
	}
	switch v := f.Val.(type) {
	case []byte:
		return []dbginfo.RawLocEntry{{Expr: append([]byte(nil), v...)}}, true
	case int64:
		return e.src.readLocList(v)
	default:
		return nil, false
	}
}

func convertTag(t dwarf.Tag) dbginfo.Tag {
	switch t {
	case dwarf.TagCompileUnit, dwarf.TagPartialUnit:
		return dbginfo.TagCompileUnit
	case dwarf.TagSubprogram:
		return dbginfo.TagSubprogram
	case dwarf.TagFormalParameter:
		return dbginfo.TagFormalParameter
	case dwarf.TagVariable:
		return dbginfo.TagVariable
	case dwarf.TagLexDwarfBlock:
		return dbginfo.TagLexicalBlock
	case dwarf.TagStructType:
		return dbginfo.TagStructureType
	case dwarf.TagUnionType:
		return dbginfo.TagUnionType
	case dwarf.TagPointerType:
		return dbginfo.TagPointerType
	case dwarf.TagArrayType:
		return dbginfo.TagArrayType
	case dwarf.TagSubrangeType:
		return dbginfo.TagSubrangeType
	case dwarf.TagMember:
		return dbginfo.TagMember
	case dwarf.TagBaseType:
		return dbginfo.TagBaseType
	case dwarf.TagEnumerationType:
		return dbginfo.TagEnumerationType
	case dwarf.TagTypedef:
		return dbginfo.TagTypedef
	case dwarf.TagConstType:
		return dbginfo.TagConstType
	default:
		return dbginfo.TagUnknown
	}
}
