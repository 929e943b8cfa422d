package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Calculate lines interactively",
	Long: `Repl reads lines with editing and history and calculates each one in a
shared context. Type :quit or send EOF to exit.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().String("history", defaultHistory(), "history file")
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".linecalc_history")
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd, ctx)
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	hist, _ := cmd.Flags().GetString("history")
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
	}

	for {
		line, err := ln.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(p.out)
			break
		}
		if err != nil {
			return err
		}
		switch strings.TrimSpace(line) {
		case "":
			continue
		case ":quit", ":q":
			return finishRepl(cmd, ln, hist, p)
		}
		ln.AppendHistory(line)
		p.calculate(line)
	}
	return finishRepl(cmd, ln, hist, p)
}

// finishRepl writes the history and state files.
func finishRepl(cmd *cobra.Command, ln *liner.State, hist string, p *printer) error {
	if hist != "" {
		if f, err := os.Create(hist); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}
	return saveState(cmd, p.ctx)
}
