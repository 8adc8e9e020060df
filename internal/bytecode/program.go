package bytecode

// Constant is one entry in a Prototype's constant pool. Only the field
// matching Type is meaningful, mirroring the teacher's tagged Instruction
// payload union in vm/bytecode.go.
type Constant struct {
	Type OperandType
	Int  int64
	Flt  float64
	Byt  byte
	Chr  rune
	Str  string
	Bool bool
}

// Prototype is one compiled function: its code, constants, and the
// metadata the VM needs to set up a call frame and the resolver/diagnostic
// layer needs to report on it (spec.md §3 Prototype fields).
type Prototype struct {
	Name        string
	NumParams   int
	NumRegs     int
	Code        []Instruction
	Constants   []Constant
	IsRecursive bool
	IsNative    bool
	NativeID    string // stdlib lookup key, set when IsNative
}

// Program is the compiled unit produced for one source file: the set of
// function prototypes plus which one is the entry point (spec.md's
// synthetic "main" prototype wrapping top-level statements).
type Program struct {
	Prototypes []*Prototype
	Entry      int
}
