package maincmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mna/mainer"

	"github.com/wisplang/wisp/internal/config"
	"github.com/wisplang/wisp/internal/sexpr"
	"github.com/wisplang/wisp/lang/compiler"
	"github.com/wisplang/wisp/lang/host"
	"github.com/wisplang/wisp/lang/value"
)

// Compile implements the `compile` subcommand: read, compile and print a
// one-line summary per file.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return c.compileFiles(ctx, stdio, args, false)
}

// Dasm implements the `dasm` subcommand: read, compile and print the full
// disassembled bytecode listing per file.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return c.compileFiles(ctx, stdio, args, true)
}

func (c *Cmd) compileFiles(_ context.Context, stdio mainer.Stdio, args []string, full bool) error {
	env, err := c.buildEnvironment()
	if err != nil {
		return printError(stdio, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return printError(stdio, err)
	}
	if unknown := config.ValidateKeys(wispcEnvKeys()); len(unknown) > 0 {
		fmt.Fprintf(stdio.Stderr, "wispc: warning: unrecognized environment variables: %s\n", strings.Join(unknown, ", "))
	}
	copts := compiler.Options{RecursionGuard: cfg.RecursionGuard}

	var firstErr error
	for _, path := range args {
		if cfg.Debug {
			fmt.Fprintf(stdio.Stderr, "wispc: compiling %s\n", path)
		}
		closure, err := compileFile(env, path, copts)
		if err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if full {
			fmt.Fprint(stdio.Stdout, compiler.Disassemble(closure.Def))
		} else {
			fmt.Fprintf(stdio.Stdout, "%s: arity=%d locals=%d flags=%v\n",
				path, closure.Def.Arity, closure.Def.Locals, closure.Def.Flags)
		}
	}
	return firstErr
}

// wispcEnvKeys scans the process environment for WISPC_-prefixed variable
// names, the set config.ValidateKeys checks against its recognized list.
func wispcEnvKeys() []string {
	var keys []string
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, "WISPC_") {
			keys = append(keys, name)
		}
	}
	return keys
}

func (c *Cmd) buildEnvironment() (*host.Environment, error) {
	env := host.NewStandardEnvironment()
	if c.HostProtocol == "" {
		return env, nil
	}
	proto, err := config.LoadHostProtocol(c.HostProtocol)
	if err != nil {
		return nil, err
	}
	if err := proto.Apply(env); err != nil {
		return nil, err
	}
	return env, nil
}

func compileFile(env *host.Environment, path string, opts compiler.Options) (*compiler.Closure, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	forms, err := sexpr.ReadAll(src)
	if err != nil {
		return nil, err
	}
	root := formsToRoot(forms)
	return compiler.CompileWithOptions(env, root, opts)
}

// formsToRoot wraps a file's top-level forms into a single AST root: a bare
// `(do ...)` tuple when there is more than one, the lone form unchanged
// otherwise, since Compile always consumes exactly one root Value.
func formsToRoot(forms []value.Value) value.Value {
	if len(forms) == 1 {
		return forms[0]
	}
	root := make(value.Tuple, 0, len(forms)+1)
	root = append(root, value.Symbol("do"))
	root = append(root, forms...)
	return root
}
