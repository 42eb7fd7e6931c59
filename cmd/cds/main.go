package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/isdacds/cmd/cds/internal/calib"
	"github.com/meenmo/isdacds/cmd/cds/internal/price"
	"github.com/meenmo/isdacds/cmd/cds/internal/risk"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "calibrate":
		return calib.Run(args[1:], stdin, stdout, stderr)
	case "price":
		return price.Run(args[1:], stdin, stdout, stderr)
	case "cs01", "risk":
		return risk.Run(args[1:], stdin, stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cds <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  calibrate  Bootstrap a credit curve from pillar quotes")
	fmt.Fprintln(w, "  price      Price CDS trades off a credit curve")
	fmt.Fprintln(w, "  cs01       Credit and interest-rate sensitivities of one trade")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run `cds <command> -h` for command-specific help.")
}
