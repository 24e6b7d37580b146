package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/primec/primec/internal/ir"
)

// Disasm prints the module's pseudo-assembly form, regardless of which
// format it was read in (so "--binary ... disasm" round-trips the codec
// back to text, and plain "... disasm" on assembly text is an identity
// modulo formatting).
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	m, err := c.loadModule(args[0])
	if err != nil {
		return printError(stdio, err)
	}
	fmt.Fprint(stdio.Stdout, ir.Disassemble(m))
	return nil
}
