package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	bold   = color.New(color.Bold)
)

// printer writes human-oriented output to a command's stdout.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer {
	return printer{w: w}
}

func (p printer) success(format string, a ...any) {
	green.Fprintf(p.w, format+"\n", a...)
}

func (p printer) warning(format string, a ...any) {
	yellow.Fprintf(p.w, "  warning: "+format+"\n", a...)
}

func (p printer) info(format string, a ...any) {
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p printer) heading(text string) {
	bold.Fprintf(p.w, "\n%s\n", text)
}
