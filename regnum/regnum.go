// Package regnum is the fixed DWARF-register-number-to-unwinder-register-
// number mapping table of spec.md §6: it maps the first 19 DWARF
// register numbers to unwinder register numbers, covering the x86-64
// general-purpose registers, the instruction pointer, flags, and the
// trap number. It has no entries for the x87 or SSE registers. A
// register-plus-offset location
// expression (spec.md §4.5) names a register by its DWARF number; the
// evaluator must translate that into whatever numbering the concrete
// Frame/unwinder implementation uses before calling Frame.Register.
//
// Implementations targeting another architecture supply an equivalent
// table; the root-resolution algorithm itself is architecture
// independent (spec.md §6).
package regnum

// Num is an unwinder-native register number, as accepted by a
// rootscan.Frame's Register method. It is architecture-specific and
// opaque to the core resolver; only a concrete Frame implementation and
// the table below agree on what it means.
type Num int

// AMD64 is the x86-64 register numbering used by the table below, in
// order 0..18: the eight original GP registers widened to 64 bits (rax,
// rdx, rcx, rbx, rsi, rdi, rbp, rsp), the r8-r15 extensions, the return
// address column (rip), then flags and the trap number pseudo-register.
const (
	AMD64_RAX Num = iota
	AMD64_RDX
	AMD64_RCX
	AMD64_RBX
	AMD64_RSI
	AMD64_RDI
	AMD64_RBP
	AMD64_RSP
	AMD64_R8
	AMD64_R9
	AMD64_R10
	AMD64_R11
	AMD64_R12
	AMD64_R13
	AMD64_R14
	AMD64_R15
	AMD64_RIP
	AMD64_EFLAGS
	AMD64_TRAPNO
)

// amd64Table maps DWARF register number -> Num, covering the first 19
// DWARF register numbers as spec.md §6 requires. Index i holds the
// mapping for DWARF register i.
var amd64Table = [...]Num{
	0:  AMD64_RAX,
	1:  AMD64_RDX,
	2:  AMD64_RCX,
	3:  AMD64_RBX,
	4:  AMD64_RSI,
	5:  AMD64_RDI,
	6:  AMD64_RBP,
	7:  AMD64_RSP,
	8:  AMD64_R8,
	9:  AMD64_R9,
	10: AMD64_R10,
	11: AMD64_R11,
	12: AMD64_R12,
	13: AMD64_R13,
	14: AMD64_R14,
	15: AMD64_R15,
	16: AMD64_RIP,
	17: AMD64_EFLAGS,
	18: AMD64_TRAPNO,
}

// AMD64MaxRegNum is the number of DWARF registers the table covers.
func AMD64MaxRegNum() int { return len(amd64Table) }

// AMD64FromDWARF translates a DWARF register number into the unwinder
// register number a Frame implementation targeting x86-64 is expected
// to use. It reports false for any DWARF register number the table does
// not cover (e.g. the x87 and SSE registers, or any vendor-specific
// extension).
func AMD64FromDWARF(dwarfRegNum int) (Num, bool) {
	if dwarfRegNum < 0 || dwarfRegNum >= len(amd64Table) {
		return 0, false
	}
	return amd64Table[dwarfRegNum], true
}
