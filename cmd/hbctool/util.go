package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"golang.org/x/term"

	"github.com/wippyai/hbctool/errors"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func fatal(err error) {
	msg := err.Error()
	if kind, ok := errors.KindOf(err); ok {
		msg = fmt.Sprintf("%s\n%s", msg, faint("kind: "+string(kind)))
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(msg))
	os.Exit(1)
}

func isTerminalIO() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// mark formats a progress line with a success or failure sign.
func mark(prefix, line string) string {
	if rest, ok := strings.CutPrefix(line, "error: "); ok {
		return red("✗ " + prefix + rest)
	}
	return green("✓") + " " + prefix + line
}

func writeJSON(w io.Writer, v any, noColor bool) error {
	var (
		out []byte
		err error
	)
	if noColor || color.NoColor {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = prettyjson.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unknown output format: %s", format)
}
