package vm

import "dust/internal/bytecode"

// callFrame is one active function invocation: its instruction pointer,
// its prototype, and its register window (spec.md §4.5 "each call frame
// has an instruction pointer, a pointer to its prototype's bytecode, a
// window into a per-thread register vector").
type callFrame struct {
	proto      *bytecode.Prototype
	protoIndex int
	ip         int
	regs       []Value
	retDest    int // register index in the caller's frame the return value lands in
	hasDest    bool
}

func newCallFrame(proto *bytecode.Prototype, protoIndex int) *callFrame {
	return &callFrame{proto: proto, protoIndex: protoIndex, regs: make([]Value, proto.NumRegs)}
}
