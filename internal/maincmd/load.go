package maincmd

import (
	"fmt"
	"io"
	"os"

	"github.com/primec/primec/internal/ir"
)

// loadModule reads path ("-" for stdin) and parses it as either the
// binary codec or pseudo-assembly text, per the --binary flag.
func (c *Cmd) loadModule(path string) (*ir.Module, error) {
	var src []byte
	var err error
	if path == "-" {
		src, err = io.ReadAll(os.Stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if c.Binary {
		m, err := ir.Deserialize(src)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return m, nil
	}

	m, err := ir.Assemble(string(src))
	if err != nil {
		return nil, fmt.Errorf("assembling %s: %w", path, err)
	}
	return m, nil
}
