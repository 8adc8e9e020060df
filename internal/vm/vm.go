package vm

import (
	"fmt"

	"dust/internal/bytecode"
	"dust/internal/cell"
	"dust/internal/dusterr"
	"dust/internal/object"
	"dust/internal/threadpool"
)

// NativeFunc is the implementation signature native stdlib functions
// satisfy, per spec.md §4.6 "Native-call ABI": destination address,
// ordered argument values, and a Context giving access to the object
// pool, cell table, and thread-pool handle.
type NativeFunc func(ctx *Context, args []Value) (Value, error)

// Registry maps a native function's stable name to its implementation;
// the compiler resolves `_spawn`, `_read_line`, etc. to OpCallNative
// instructions carrying the name as a constant-pool string, looked up
// here at call time.
type Registry map[string]NativeFunc

// Machine owns everything shared across threads executing one compiled
// Program: the prototype list, the constant pools already embedded in
// each Prototype, the cell table, the object pool, and the thread pool
// (spec.md §5 "Shared resources").
type Machine struct {
	Program *bytecode.Program
	Cells   *cell.Table
	Pool    *object.Pool
	Threads *threadpool.Pool
	Natives Registry
}

// NewMachine wires up the shared runtime state for prog. cellCount sizes
// the cell table and is chosen by the caller (the driver's -cells flag);
// numWorkers sizes the thread pool backing _spawn.
func NewMachine(prog *bytecode.Program, cellCount, numWorkers int, natives Registry) *Machine {
	return &Machine{
		Program: prog,
		Cells:   cell.NewTable(cellCount),
		Pool:    object.NewPool(),
		Threads: threadpool.New(numWorkers, 256),
		Natives: natives,
	}
}

// Context is what a native function and the thread's own handlers see:
// the calling thread's shared machine state plus its own identity, per
// spec.md §4.6's native-call ABI fields ("object pool, register window,
// tag window, cell table, thread-pool handle").
type Context struct {
	Machine *Machine
	Thread  *Thread
}

// Thread executes one sequential dispatch loop over a stack of call
// frames, per spec.md §4.5 "Scheduling... Each thread executes a
// sequential dispatch loop."
type Thread struct {
	id     int
	frames []*callFrame
	pool   *object.Pool
	m      *Machine
}

// RunResult is the top-level (Option<Value>) the entry-point `run` driver
// interface returns (spec.md §6).
type RunResult struct {
	Value    Value
	HasValue bool
}

// Run instantiates the main call frame (Prototype[0]) and executes it to
// completion on a fresh thread, per spec.md §2 "VM... instantiates the
// main call frame... and runs."
func (m *Machine) Run() (RunResult, error) {
	th := &Thread{id: 1, pool: m.Pool, m: m}
	entry := m.Program.Prototypes[m.Program.Entry]
	th.frames = append(th.frames, newCallFrame(entry, m.Program.Entry))
	v, err := th.dispatch()
	if err != nil {
		return RunResult{}, err
	}
	if v == nil {
		return RunResult{}, nil
	}
	return RunResult{Value: *v, HasValue: true}, nil
}

// dispatch is the fetch-decode-execute loop: fetch the word at ip,
// decode operation, dispatch to its handler, per spec.md §4.5
// "Dispatch." The teacher's execNextInstruction (vm/exec.go) advances pc
// before executing and recovers panics into a sentinel error; this port
// keeps both: index-out-of-range or nil-object-deref bugs in a handler
// surface as ErrPanic instead of crashing the whole process.
func (t *Thread) dispatch() (result *Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", dusterr.ErrPanic, r)
		}
	}()

	for {
		fr := t.frames[len(t.frames)-1]
		if fr.ip >= len(fr.proto.Code) {
			return nil, dusterr.ErrStackOverflow
		}
		w := fr.proto.Code[fr.ip]
		fr.ip++

		ret, done, herr := t.exec(fr, w)
		if herr != nil {
			return nil, herr
		}
		if done {
			if len(t.frames) == 1 {
				return ret, nil
			}
			callee := t.frames[len(t.frames)-1]
			t.frames = t.frames[:len(t.frames)-1]
			caller := t.frames[len(t.frames)-1]
			if callee.hasDest && ret != nil {
				caller.regs[callee.retDest] = *ret
			}
		}
	}
}

// resolve reads an operand address against the current frame: REGISTER
// indexes the frame's own window, CONSTANT indexes the prototype's pool
// (with the all-ones sentinel naming the prototype itself for direct
// recursion, spec.md §3), ENCODED decodes its index as an immediate, and
// CELL indexes the shared cell table.
func (t *Thread) resolve(fr *callFrame, ot bytecode.OperandType, a bytecode.Address) Value {
	switch a.Kind {
	case bytecode.KindRegister:
		return fr.regs[a.Index]
	case bytecode.KindConstant:
		if ot == bytecode.TypeFunction {
			// Function-typed CONSTANT addresses name a Prototype index
			// directly rather than a constant-pool entry (function
			// references carry their prototype index inline, spec.md §3
			// "FUNCTION" operand type); the all-ones sentinel index (here
			// -1 once sign-extended from the 15-bit field) names the
			// current prototype for direct recursion.
			if a.Index == -1 {
				return Value{Bits: uint64(fr.protoIndex), Tag: bytecode.TypeFunction}
			}
			return Value{Bits: uint64(a.Index), Tag: bytecode.TypeFunction}
		}
		return t.constantValue(fr.proto.Constants[a.Index])
	case bytecode.KindEncoded:
		return encodedValue(ot, a.Index)
	case bytecode.KindCell:
		cv := t.m.Cells.Read(a.Index)
		if cv.IsObject {
			return Value{Obj: object.Ref{}, Tag: ot}
		}
		return Value{Bits: cv.Bits, Tag: ot}
	}
	return Value{}
}

func (t *Thread) store(fr *callFrame, a bytecode.Address, v Value) {
	switch a.Kind {
	case bytecode.KindRegister:
		fr.regs[a.Index] = v
	case bytecode.KindCell:
		t.m.Cells.Write(a.Index, cell.Value{Bits: v.Bits, IsObject: v.Tag.IsObject()})
	}
}
