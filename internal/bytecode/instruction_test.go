package bytecode

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		op      Op
		ot      OperandType
		a, b, c Address
	}{
		{OpAdd, TypeInteger, Address{KindRegister, 0}, Address{KindRegister, 1}, Address{KindRegister, 2}},
		{OpLoadConstant, TypeString, Address{KindRegister, 300}, Address{KindConstant, 4095}, Address{}},
		{OpMove, TypeFloat, Address{KindCell, 16383}, Address{}, Address{}},
		{OpNegate, TypeInteger, Address{KindRegister, -1}, Address{}, Address{}},
	}
	for _, c := range cases {
		w := Encode(c.op, c.ot, c.a, c.b, c.c)
		assert(t, w.Op() == c.op, "op: got %v want %v", w.Op(), c.op)
		assert(t, w.OperandType() == c.ot, "operand type: got %v want %v", w.OperandType(), c.ot)
		assert(t, w.A() == c.a, "A: got %+v want %+v", w.A(), c.a)
		assert(t, w.B() == c.b, "B: got %+v want %+v", w.B(), c.b)
		assert(t, w.C() == c.c, "C: got %+v want %+v", w.C(), c.c)
	}
}

func TestJumpOffsetRoundTrip(t *testing.T) {
	offsets := []int32{0, 1, -1, 1000, -1000, 1 << 20, -(1 << 20)}
	for _, off := range offsets {
		w := EncodeJump(OpJump, Address{}, off)
		got := w.JumpOffset()
		assert(t, got == off, "offset: got %d want %d", got, off)
	}
}

func TestInstructionString(t *testing.T) {
	w := Encode(OpAdd, TypeInteger, Address{KindRegister, 0}, Address{KindRegister, 1}, Address{KindRegister, 2})
	s := w.String()
	assert(t, s == "ADD R0 R1 R2", "got %q", s)
}
