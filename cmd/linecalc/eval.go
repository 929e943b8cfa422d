package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/linecalc"
)

var evalCmd = &cobra.Command{
	Use:   "eval [flags] [expr...]",
	Short: "Calculate expressions",
	Long: `Eval calculates each argument as a line. Without arguments, it reads
lines from the input file or stdin. Definitions on one line are visible to
later lines unless --jobs is given, which calculates lines independently.`,
	RunE: runEval,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens expr...",
	Short: "Print the tokens of an expression",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTokens,
}

func init() {
	evalCmd.Flags().String("in", "", "input file (default stdin if no args given)")
	evalCmd.Flags().Int("jobs", 0, "calculate lines independently with this many goroutines")
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd, ctx)
	if err != nil {
		return err
	}
	lines := args
	if len(lines) == 0 {
		inname, _ := cmd.Flags().GetString("in")
		lines, err = readLines(cmd, inname)
		if err != nil {
			return err
		}
	}

	failed := false
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs > 0 {
		results, err := ctx.CalculateLines(cmd.Context(), lines, jobs)
		if err != nil {
			return err
		}
		for _, r := range results {
			p.echo(lines[r.Line])
			if r.Err != nil {
				p.error(lines[r.Line], r.Err)
				failed = true
				continue
			}
			p.result(r.Result)
		}
	} else {
		for _, line := range lines {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if !p.calculate(line) {
				failed = true
			}
		}
		if err := saveState(cmd, ctx); err != nil {
			return err
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// readLines reads the lines of the named file, or of stdin if the name is
// empty or "-".
func readLines(cmd *cobra.Command, inname string) ([]string, error) {
	var in io.Reader = cmd.InOrStdin()
	if inname != "" && inname != "-" {
		f, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func runTokens(cmd *cobra.Command, args []string) error {
	ctx := linecalc.NewContext()
	p, err := newPrinter(cmd, ctx)
	if err != nil {
		return err
	}
	line := strings.Join(args, " ")
	toks, err := linecalc.Tokenize(line)
	if err != nil {
		p.error(line, err)
		return errFailed
	}
	for _, tok := range toks {
		p.printf("%-16v %-8v %q\n", tok.Kind, tok.Range, tok.Text)
	}
	return nil
}
