package resolve

import "dust/internal/types"

// NativeSignatures is the fixed set of native functions every Dust
// program may call by name (spec.md §4.6's std.io/convert/thread
// builtins, implemented in internal/stdlib). They are not ordinary
// declarations — there is no `let`/`fn` binding site for them anywhere
// in source — so the resolver special-cases their identifiers directly
// in resolveExpr's identifier case instead of seeding them into the root
// scope's declaration table.
var NativeSignatures = map[string]types.FunctionType{
	"_read_line":    {Params: nil, Return: types.StrT},
	"_write_line":   {Params: []types.Type{types.StrT}, Return: types.NoneT},
	"_int_to_str":   {Params: []types.Type{types.IntT}, Return: types.StrT},
	"_float_to_str": {Params: []types.Type{types.FloatT}, Return: types.StrT},
	"_str_to_int":   {Params: []types.Type{types.StrT}, Return: types.IntT},
	"_str_len":      {Params: []types.Type{types.StrT}, Return: types.IntT},
	"_random_int":   {Params: []types.Type{types.IntT, types.IntT}, Return: types.IntT},
	"_spawn":        {Params: []types.Type{types.FuncOf(nil, types.NoneT)}, Return: types.NoneT},
}
