package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zephyrtronium/linecalc"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	caretColor  = color.New(color.FgGreen, color.Bold)
	resultColor = color.New(color.FgCyan)
	echoColor   = color.New(color.Faint)
)

// printer writes results and errors of calculations.
type printer struct {
	ctx      *linecalc.Context
	out, err io.Writer
	echoing  bool
}

func newPrinter(cmd *cobra.Command, ctx *linecalc.Context) (*printer, error) {
	pf := cmd.Root().PersistentFlags()
	mode, _ := pf.GetString("color")
	on, err := useColor(mode, os.Stdout)
	if err != nil {
		return nil, err
	}
	color.NoColor = !on
	echo, _ := pf.GetBool("echo")
	return &printer{ctx: ctx, out: cmd.OutOrStdout(), err: cmd.ErrOrStderr(), echoing: echo}, nil
}

// useColor decides whether to colorize output to f.
func useColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("unknown color mode %q (want auto, on, or off)", mode)
}

// calculate calculates a line and prints its result or error. It reports
// whether the line succeeded.
func (p *printer) calculate(line string) bool {
	p.echo(line)
	r, err := p.ctx.Calculate(line)
	if err != nil {
		p.error(line, err)
		return false
	}
	p.result(r)
	return true
}

// echo prints the parse tree of a line if echoing is enabled.
func (p *printer) echo(line string) {
	if !p.echoing || strings.TrimSpace(line) == "" {
		return
	}
	parsed, err := linecalc.ParseString(line, linecalc.ParseWith(p.ctx))
	if err != nil {
		return
	}
	s := linecalc.FormatAST(parsed.AST)
	switch parsed.Kind {
	case linecalc.EqualityCheck:
		s += " = " + linecalc.FormatAST(parsed.RHS)
	case linecalc.Definition:
		s = parsed.Def.Name + " := " + s
	}
	fmt.Fprintln(p.out, echoColor.Sprint(s))
}

func (p *printer) result(r linecalc.Result) {
	if r.Kind == linecalc.ResultNone {
		return
	}
	fmt.Fprintln(p.out, resultColor.Sprint(p.ctx.Render(r)))
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// error prints an error. Errors with source ranges show the line with the
// ranges underlined.
func (p *printer) error(line string, err error) {
	var e *linecalc.Error
	if !errors.As(err, &e) {
		fmt.Fprintln(p.err, errorColor.Sprint("error:"), err)
		return
	}
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	fmt.Fprintln(p.err, "  "+line)
	fmt.Fprintln(p.err, "  "+caretColor.Sprint(underline(line, e.Ranges())))
	fmt.Fprintln(p.err, errorColor.Sprint("error:"), msg)
}

// underline marks the ranges of line with ^~~~, aligned by display width.
// The first range is the primary one; its caret is never overwritten.
func underline(line string, rs []linecalc.Range) string {
	var marks []byte
	for i, r := range rs {
		start, end := clamp(r.Start, len(line)), clamp(r.End, len(line))
		if end < start {
			end = start
		}
		col := runewidth.StringWidth(line[:start])
		w := runewidth.StringWidth(line[start:end])
		if w == 0 {
			w = 1
		}
		for len(marks) < col+w {
			marks = append(marks, ' ')
		}
		for j := col; j < col+w; j++ {
			if i > 0 && marks[j] != ' ' {
				continue
			}
			if j == col {
				marks[j] = '^'
			} else {
				marks[j] = '~'
			}
		}
	}
	return string(marks)
}

func clamp(x, n int) int {
	return max(0, min(x, n))
}
