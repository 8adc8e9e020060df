package vm

import (
	"dust/internal/bytecode"
	"dust/internal/dusterr"
)

// execCall sets up a fresh callee frame and transfers control to it with
// ip = 0, per spec.md §4.5 "Call": "the callee's register window is
// allocated; the call's argument addresses are copied into callee
// registers 0..n. Control transfers to the callee with ip = 0."
func (t *Thread) execCall(fr *callFrame, dest, callee, args bytecode.Address) error {
	calleeVal := t.resolve(fr, bytecode.TypeFunction, callee)
	protoIdx := int(calleeVal.Bits)
	if protoIdx < 0 || protoIdx >= len(t.m.Program.Prototypes) {
		return dusterr.ErrPanic
	}
	proto := t.m.Program.Prototypes[protoIdx]

	argCount := int(args.Index)
	argStart := int(dest.Index) - argCount
	callee2 := newCallFrame(proto, protoIdx)
	for i := 0; i < argCount && i < proto.NumParams; i++ {
		callee2.regs[i] = fr.regs[argStart+i]
	}
	callee2.retDest = int(dest.Index)
	callee2.hasDest = dest.Kind == bytecode.KindRegister

	if len(t.frames) > 4096 {
		return dusterr.ErrStackOverflow
	}
	t.frames = append(t.frames, callee2)
	return nil
}

// execCallNative invokes a stdlib builtin by name (resolved via the
// callee's Prototype-style CONSTANT string literal) against the shared
// Registry, per spec.md §4.6's native-call ABI.
func (t *Thread) execCallNative(fr *callFrame, dest, callee, args bytecode.Address) error {
	name := ""
	if callee.Kind == bytecode.KindConstant {
		name = fr.proto.Constants[callee.Index].Str
	}
	fn, ok := t.m.Natives[name]
	if !ok {
		return dusterr.ErrUnimplemented
	}
	argCount := int(args.Index)
	argVals := make([]Value, argCount)
	destIdx := int(dest.Index)
	for i := 0; i < argCount; i++ {
		argVals[i] = fr.regs[destIdx-argCount+i]
	}
	ctx := &Context{Machine: t.m, Thread: t}
	result, err := fn(ctx, argVals)
	if err != nil {
		return err
	}
	if dest.Kind == bytecode.KindRegister {
		fr.regs[dest.Index] = result
	}
	return nil
}
