package rootscan

import "go.uber.org/zap"

// Resolve implements the §4.8 root resolver: resolve(call_stack,
// context) → [Root]. Frames whose PC is not covered by any known
// function are skipped (the expected "foreign frame" case, §7
// resolution-miss); variables whose location does not resolve at the
// frame's PC are likewise skipped silently (§7 location-unevaluable).
// Neither is reported as an error. logger may be nil.
func Resolve(stack CallStack, ctx *Context, logger *zap.Logger) []Root {
	if logger == nil {
		logger = zap.NewNop()
	}
	var roots []Root
	for _, frame := range stack {
		fn, ok := ctx.FindFunction(uint64(frame.PC()))
		if !ok {
			logger.Debug("frame pc not covered by any known function", zap.Uint64("pc", uint64(frame.PC())))
			continue
		}
		roots = resolveScope(&fn.TopScope, frame, roots, logger)
	}
	return roots
}

// resolveScope walks one scope against frame.PC(), recursing into
// contained children before evaluating the scope's own variables
// (post-order, per §4.8 step 3 — the contract is which roots are
// emitted, not their order).
func resolveScope(s *Scope, frame Frame, roots []Root, logger *zap.Logger) []Root {
	pc := uint64(frame.PC())
	for _, child := range s.Children {
		if child.contains(pc) {
			roots = resolveScope(child, frame, roots, logger)
		}
	}
	for _, v := range s.Variables {
		addr, ok := evaluateLocation(v.Location, pc, frame, logger)
		if !ok {
			logger.Debug("variable has no valid location at this pc", zap.String("name", v.Name), zap.Uint64("pc", pc))
			continue
		}
		roots = append(roots, Root{Address: addr, Type: v.Type.ID()})
	}
	return roots
}

// evaluateLocation implements §4.5: select the first expression whose
// validity range contains pc and evaluate its first operator. If no
// expression resolves, the variable is not currently live. An expression
// whose operator is outside the two supported forms is logged and skipped.
func evaluateLocation(exprs []LocationExpr, pc uint64, frame Frame, logger *zap.Logger) (Word, bool) {
	for _, e := range exprs {
		if !e.validAt(pc) || len(e.Ops) == 0 {
			continue
		}
		switch op := e.Ops[0]; op.Kind {
		case LocOpFrameBaseOffset:
			return Word(int64(frame.SP()) + op.Offset), true
		case LocOpRegisterOffset:
			regVal, ok := frame.Register(op.Reg)
			if !ok {
				continue
			}
			return Word(int64(regVal) + op.Offset), true
		default:
			logger.Debug("skipping unsupported location expression", zap.Uint64("pc", pc))
			continue
		}
	}
	return 0, false
}
