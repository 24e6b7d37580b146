package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/primec/primec/internal/vm"
)

// Run interprets the module on the stack VM and prints its 64-bit
// result to stdout. The process exit status reports only success or
// failure; it does not carry the result the way a native build's exit
// code does.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	m, err := c.loadModule(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	result, err := vm.Execute(m)
	if err != nil {
		return printError(stdio, err)
	}

	fmt.Fprintf(stdio.Stdout, "%d\n", result)
	return nil
}
