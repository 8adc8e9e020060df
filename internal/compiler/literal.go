package compiler

import (
	"strconv"
	"strings"

	"dust/internal/ast"
	"dust/internal/bytecode"
)

func (c *compiler) constOrEncodedInt(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	text := strings.ReplaceAll(n.Text, "_", "")
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		c.errorf(id, "malformed integer literal %q", n.Text)
		return bytecode.Address{}
	}
	if enc, ok := encodedSmallInt(v); ok {
		return bytecode.Address{Kind: bytecode.KindEncoded, Index: enc}
	}
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeInteger, Int: v})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
}

func (c *compiler) constFloat(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	text := strings.ReplaceAll(n.Text, "_", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		c.errorf(id, "malformed float literal %q", n.Text)
		return bytecode.Address{}
	}
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeFloat, Flt: v})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
}

func (c *compiler) constByte(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	v, err := strconv.ParseUint(n.Text, 0, 8)
	if err != nil {
		c.errorf(id, "malformed byte literal %q", n.Text)
		return bytecode.Address{}
	}
	if enc, ok := encodedSmallInt(int64(v)); ok {
		return bytecode.Address{Kind: bytecode.KindEncoded, Index: enc}
	}
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeByte, Byt: byte(v)})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
}

func (c *compiler) constChar(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	r := []rune(n.Text)[0]
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeCharacter, Chr: r})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
}

func (c *compiler) constString(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeString, Str: n.Text})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
}
