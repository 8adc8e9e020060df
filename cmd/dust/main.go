// Command dust is the driver for the Dust language: it lexes, parses,
// resolves, and compiles one source file, then runs the resulting
// program on the register VM. Flag handling and the recover-wrapped run
// loop follow the teacher's main.go (-debug flag, a deferred recover that
// prints whatever error code the VM was left holding rather than a raw
// panic trace).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"dust/internal/bytecode"
	"dust/internal/compiler"
	"dust/internal/diagnostic"
	"dust/internal/dusterr"
	"dust/internal/parser"
	"dust/internal/resolve"
	"dust/internal/stdlib"
	"dust/internal/token"
	"dust/internal/vm"
)

var (
	debug      = flag.Bool("debug", false, "print the compiled bytecode for each prototype before running")
	workers    = flag.Int("workers", 4, "number of worker goroutines backing _spawn")
	cellCount  = flag.Int("cells", 64, "size of the shared cell table")
	disassOnly = flag.Bool("disassemble", false, "compile and print bytecode, then exit without running")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("dust: ")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: dust [-debug] [-disassemble] [-workers N] [-cells N] <file>")
		os.Exit(1)
	}

	if err := run(args[0]); err != nil {
		log.Fatal(err)
	}
}

func run(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	files := &diagnostic.Set{Files: []*diagnostic.File{diagnostic.NewFile(path, src)}}

	tree, perrs := parser.Parse(token.FileId(0), src)
	if len(perrs) > 0 {
		return reportAll(files, perrs)
	}

	res := resolve.Resolve(tree)
	if len(res.Errors) > 0 {
		return reportAll(files, res.Errors)
	}

	prog, cerrs := compiler.Compile(tree, res)
	if len(cerrs) > 0 {
		return reportAll(files, cerrs)
	}

	if *debug || *disassOnly {
		disassemble(prog)
		if *disassOnly {
			return nil
		}
	}

	machine := vm.NewMachine(prog, *cellCount, *workers, stdlib.Registry())
	defer machine.Threads.Close()

	result, err := machine.Run()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if result.HasValue {
		fmt.Println(machine.Format(result.Value))
	}
	return nil
}

func reportAll(files *diagnostic.Set, errs []error) error {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, files.Render(e))
	}
	return dusterr.ErrInternalCompiler
}

func disassemble(prog *bytecode.Program) {
	for i, p := range prog.Prototypes {
		fmt.Printf("-- prototype %d (%s, %d params, %d regs) --\n", i, p.Name, p.NumParams, p.NumRegs)
		for pc, w := range p.Code {
			fmt.Printf("  %4d: %s\n", pc, w)
		}
	}
}
