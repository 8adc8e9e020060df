// Package stdlib implements the native functions Dust programs reach
// under the `std` module (sub-modules io, convert, thread), per spec.md
// §4.6. Each function satisfies vm.NativeFunc: it reads its arguments,
// does its I/O or conversion or scheduling work, and writes a result the
// VM copies into the call's destination register.
//
// Console I/O is grounded on the teacher's consoleIO device (vm/devices.go):
// one buffered stdin reader, created once and shared by every _read_line
// call, and a mutex serializing _write_line output the way consoleIO
// guards access with its own sync.Mutex.
package stdlib

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"dust/internal/bytecode"
	"dust/internal/object"
	"dust/internal/vm"
)

var (
	stdinOnce   sync.Once
	stdinReader *bufio.Reader
	stdoutMu    sync.Mutex
)

func stdin() *bufio.Reader {
	stdinOnce.Do(func() { stdinReader = bufio.NewReader(os.Stdin) })
	return stdinReader
}

// Registry returns the full std.* native function table, ready to hand
// to vm.NewMachine.
func Registry() vm.Registry {
	return vm.Registry{
		"_read_line":    readLine,
		"_write_line":   writeLine,
		"_int_to_str":   intToStr,
		"_float_to_str": floatToStr,
		"_str_to_int":   strToInt,
		"_str_len":      strLen,
		"_random_int":   randomInt,
		"_spawn":        spawn,
	}
}

func allocString(ctx *vm.Context, s string) vm.Value {
	ref := ctx.Machine.Pool.Alloc(ctx.Thread.ID(), object.Value{Kind: object.KindString, Str: s})
	return vm.ObjValue(bytecode.TypeString, ref)
}

// _read_line() -> str. Blocks on stdin, per spec.md §5 "Native functions
// may block (e.g. _read_line blocks on standard input)."
func readLine(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	line, err := stdin().ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err != nil && line == "" {
		return vm.Value{}, err
	}
	return allocString(ctx, line), nil
}

// _write_line(s: str) -> none.
func writeLine(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.Value{}, fmt.Errorf("_write_line: want 1 argument, got %d", len(args))
	}
	s := ctx.Machine.Pool.Get(args[0].Obj).Str
	stdoutMu.Lock()
	fmt.Println(s)
	stdoutMu.Unlock()
	return vm.Value{}, nil
}

func intToStr(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	return allocString(ctx, strconv.FormatInt(vm.AsInt(args[0]), 10)), nil
}

func floatToStr(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	return allocString(ctx, strconv.FormatFloat(vm.AsFloat(args[0]), 'g', -1, 64)), nil
}

func strToInt(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	s := ctx.Machine.Pool.Get(args[0].Obj).Str
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return vm.Value{}, err
	}
	return vm.IntValue(v), nil
}

func strLen(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	s := ctx.Machine.Pool.Get(args[0].Obj).Str
	return vm.IntValue(int64(len([]rune(s)))), nil
}

// _random_int(lo: int, hi: int) -> int, half-open [lo, hi).
func randomInt(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	lo, hi := vm.AsInt(args[0]), vm.AsInt(args[1])
	if hi <= lo {
		return vm.IntValue(lo), nil
	}
	return vm.IntValue(lo + pseudoRandom()%(hi-lo)), nil
}

// pseudoRandom draws from one process-wide xorshift state, guarded by its
// own mutex and shared by every spawned caller, seeded once from the OS
// clock at process start.
var randState = newXorshiftState()

func pseudoRandom() int64 {
	return randState.next()
}

// _spawn(f: fn()) -> none. Enqueues f on the shared thread pool and
// returns immediately without waiting for it (spec.md §4.6/§5).
func spawn(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.Value{}, fmt.Errorf("_spawn: want 1 argument, got %d", len(args))
	}
	protoIdx := int(vm.AsInt(args[0]))
	ctx.Machine.Threads.Spawn(func() {
		ctx.Machine.RunPrototype(protoIdx)
	})
	return vm.Value{}, nil
}
