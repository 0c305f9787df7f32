// Command wispc is the CLI front-end for the wisp compiler core: it reads
// s-expression source files, compiles them, and prints either a summary or
// a full disassembly.
package main

import (
	"os"

	"github.com/mna/mainer"

	"github.com/wisplang/wisp/internal/maincmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := maincmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
