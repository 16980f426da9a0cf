// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"bfopt/internal/bytecode"
	"bfopt/internal/diag"
	"bfopt/internal/ir"
	"bfopt/internal/lexer"
	"bfopt/internal/parser"
	"bfopt/internal/vm"
)

const usage = "Usage: bfopt <file.bf> [opt]"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	path := os.Args[1]
	optimize := len(os.Args) >= 3

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	prog, err := parser.Parse(lexer.Lex(string(source)))
	if err != nil {
		reportParseError(path, string(source), err)
		os.Exit(1)
	}

	in := vm.NewLineInput(os.Stdin)
	out := vm.NewByteOutput(os.Stdout)

	var steps int64
	var runErr error

	if optimize {
		color.Cyan("optimizing...")
		optimized := ir.Optimize(prog, true, os.Stderr)
		ops := bytecode.Lower(optimized)

		machine := vm.New(in, out)
		machine.Warnings = os.Stderr
		runErr = machine.Run(ops)
		steps = machine.Steps
	} else {
		reference := vm.NewReference(in, out)
		reference.Warnings = os.Stderr
		runErr = reference.Run(prog)
		steps = reference.Steps
	}

	color.Cyan("executed %s instructions", humanize.Comma(steps))

	if runErr != nil {
		switch e := runErr.(type) {
		case *vm.HaltError:
			color.Red("%s", e.Error())
		case *vm.IOError:
			color.Red("%s", e.Error())
		default:
			color.Red("runtime error: %s", runErr)
		}
		os.Exit(1)
	}
}

func reportParseError(path, source string, err error) {
	pe, ok := err.(*parser.ParseError)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}

	reporter := diag.NewReporter(path, source)
	d := diag.Diagnostic{
		Level:   diag.LevelError,
		Message: pe.Error(),
		Pos:     pe.Pos,
	}
	if pe.Kind == parser.EndLoopWithoutStart {
		d.HelpText = "remove the stray ']' or add a matching '[' before it"
	} else {
		d.HelpText = "add a matching ']' to close this loop"
	}
	fmt.Print(reporter.Format(d))
}
