package rootscan

import "github.com/riftrunner/rootscan/regnum"

// RegNum is an unwinder-native register number (spec.md §3, "Frame:
// register_read: RegNum -> Word"). See package regnum for the
// DWARF-register-number mapping table that produces these.
type RegNum = regnum.Num

// Word is a machine word: an address or a register's raw content.
type Word uint64

// Frame is one activation record on a call stack, as exposed by an
// external unwinder (spec.md §1 non-goals: the unwinder itself is out
// of scope for this package; only this consumption contract is ours).
// PC and SP follow spec.md's glossary: PC is the current instruction in
// the innermost frame and the return address in every other frame; SP
// is the frame's stack pointer, used as the frame base for
// frame-base-offset location expressions.
type Frame interface {
	PC() Word
	SP() Word
	// Register returns the current value of the given register in this
	// frame, and whether the unwinder was able to recover it at all
	// (some registers may be unknown this far up the stack).
	Register(r RegNum) (Word, bool)
}

// CallStack is an ordered snapshot of frames, innermost (most recently
// called) first.
type CallStack []Frame
