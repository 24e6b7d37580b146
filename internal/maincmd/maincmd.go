// Package maincmd is the command-line driver: it owns argument parsing,
// environment overrides, and dispatch, but none of the compiler logic
// itself. Every subcommand below consumes an already-lowered ir.Module —
// there is no source text anywhere on this path, since lexing, parsing,
// resolution, and template monomorphization are produced upstream of
// this module (see internal/ast's package comment). A module arrives
// either as pseudo-assembly text (ir.Assemble) or as the binary codec
// (ir.Deserialize), and leaves either interpreted (internal/vm) or
// compiled and installed as a native arm64 Mach-O binary (internal/native).
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "primec"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> <path>
       %[1]s -h|--help
       %[1]s -v|--version

Driver for the primec bytecode backend: runs or compiles an already
lowered IR module. path is "-" to read from stdin.

The <command> can be one of:
       run                       Interpret the module on the stack VM
                                 (internal/vm) and print its result.
       build                     Compile the module to a native arm64
                                 Mach-O executable and install it at the
                                 path given by -o.
       disasm                    Print the module's pseudo-assembly
                                 form (ir.Disassemble).

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -o --output <path>        Output path for "build" (default a.out
                                 under PRIMEC_OUTPUT_DIR).
       --binary                  Read path as the binary IR codec
                                 instead of pseudo-assembly text.

Environment overrides (prefix %[2]s):
       PRIMEC_OUTPUT_DIR         Directory "build" writes to when -o is
                                 not given.
       PRIMEC_SIGN_IDENTIFIER    Ad hoc code signature identifier baked
                                 into "build" output.

More information:
       https://github.com/primec/primec
`, binName, strings.ToUpper(binName)+"_")
)

// config holds the tunables that make sense as environment overrides
// rather than per-invocation flags: they describe the machine primec
// runs on (where build artifacts land, what identifier a signature
// should carry), not the module being compiled.
type config struct {
	OutputDir      string `env:"PRIMEC_OUTPUT_DIR" envDefault:"."`
	SignIdentifier string `env:"PRIMEC_SIGN_IDENTIFIER" envDefault:"primec-native"`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Output string `flag:"o,output"`
	Binary bool   `flag:"binary"`

	cfg config

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if err := env.Parse(&c.cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if len(c.args[1:]) != 1 {
		return fmt.Errorf("%s: exactly one path argument is required", cmdName)
	}

	if c.Output == "" {
		c.Output = c.cfg.OutputDir + string(os.PathSeparator) + "a.out"
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // flag values themselves stay process-argument-only; see config for the env-driven knobs
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings
// as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}
