package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/primec/primec/internal/native"
)

// Build compiles the module to a native arm64 Mach-O executable via
// internal/native and installs it at c.Output (PRIMEC_OUTPUT_DIR/a.out
// unless -o was given).
func (c *Cmd) Build(ctx context.Context, stdio mainer.Stdio, args []string) error {
	m, err := c.loadModule(args[0])
	if err != nil {
		return printError(stdio, err)
	}

	art, err := native.Emit(m)
	if err != nil {
		return printError(stdio, fmt.Errorf("compiling: %w", err))
	}

	binary, err := native.Write(art, c.cfg.SignIdentifier)
	if err != nil {
		return printError(stdio, fmt.Errorf("linking: %w", err))
	}

	if err := native.Install(c.Output, binary); err != nil {
		return printError(stdio, fmt.Errorf("installing %s: %w", c.Output, err))
	}

	fmt.Fprintf(stdio.Stdout, "%s\n", c.Output)
	return nil
}
