package compiler

import (
	"fmt"

	"dust/internal/bytecode"
)

// constPool deduplicates constants by value, the way a real assembler's
// string/literal pool avoids emitting the same payload twice (spec.md
// §4.4 "Constant pool. Deduplicated by value").
type constPool struct {
	values []bytecode.Constant
	index  map[string]int32
}

func newConstPool() *constPool {
	return &constPool{index: map[string]int32{}}
}

func (p *constPool) key(c bytecode.Constant) string {
	switch c.Type {
	case bytecode.TypeInteger:
		return fmt.Sprintf("i%d", c.Int)
	case bytecode.TypeFloat:
		return fmt.Sprintf("f%x", c.Flt)
	case bytecode.TypeByte:
		return fmt.Sprintf("b%d", c.Byt)
	case bytecode.TypeCharacter:
		return fmt.Sprintf("c%d", c.Chr)
	case bytecode.TypeString:
		return "s" + c.Str
	case bytecode.TypeBoolean:
		return fmt.Sprintf("k%v", c.Bool)
	default:
		return "?"
	}
}

// intern returns the constant's pool index, adding it if not already
// present.
func (p *constPool) intern(c bytecode.Constant) int32 {
	k := p.key(c)
	if idx, ok := p.index[k]; ok {
		return idx
	}
	idx := int32(len(p.values))
	p.values = append(p.values, c)
	p.index[k] = idx
	return idx
}

// encodedSmallInt reports whether v fits the ENCODED operand's 15-bit
// signed index field directly (spec.md §4.4: "small literals ... are
// encoded directly (MemoryKind::ENCODED) to save pool space").
func encodedSmallInt(v int64) (int32, bool) {
	if v >= -16384 && v <= 16383 {
		return int32(v), true
	}
	return 0, false
}
