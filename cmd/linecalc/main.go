package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zephyrtronium/linecalc"
)

var rootCmd = &cobra.Command{
	Use:           "linecalc",
	Short:         "Line calculator with units, dates, and vectors",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log.SetFlags(0)
	rootCmd.AddCommand(evalCmd, replCmd, tokensCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("settings", "", "TOML settings file")
	pf.String("currencies", "", "YAML currency rate file")
	pf.String("state", "", "file to load variables from and save them to")
	pf.StringArray("given", nil, "name=value variable definition (any number of times)")
	pf.Uint("prec", 64, "precision of calculations in bits")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("echo", false, "print parse trees")
	pf.Bool("full-units", false, "print unit names in full")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, errFailed) {
		stop()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// errFailed indicates that some calculations failed and have already been
// reported.
var errFailed = errors.New("calculations failed")

// newContext creates a calculation context from the global flags.
func newContext(cmd *cobra.Command) (*linecalc.Context, error) {
	pf := cmd.Root().PersistentFlags()
	settings := linecalc.DefaultSettings()
	if path, _ := pf.GetString("settings"); path != "" {
		s, err := linecalc.LoadSettings(path)
		if err != nil {
			return nil, err
		}
		settings = s
	}
	if full, _ := pf.GetBool("full-units"); full {
		settings.Display.FullUnits = true
	}
	units, err := settings.UnitTable()
	if err != nil {
		return nil, err
	}
	opts := []linecalc.ContextOption{linecalc.WithSettings(settings), linecalc.WithUnits(units)}
	if path, _ := pf.GetString("currencies"); path != "" {
		c, err := linecalc.LoadCurrenciesFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, linecalc.WithCurrencies(c))
	}
	prec, _ := pf.GetUint("prec")
	if prec == 0 {
		return nil, fmt.Errorf("precision must be positive")
	}
	opts = append(opts, linecalc.Prec(prec))
	ctx := linecalc.NewContext(opts...)

	if path, _ := pf.GetString("state"); path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Nothing saved yet.
		case err != nil:
			return nil, err
		default:
			if err := ctx.UnmarshalVars(b); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	given, _ := pf.GetStringArray("given")
	for _, g := range given {
		name, val, ok := strings.Cut(g, "=")
		if !ok {
			return nil, fmt.Errorf(`variable definitions must be "name=value", not %q`, g)
		}
		name = strings.TrimSpace(name)
		if _, err := ctx.Calculate(name + " := " + val); err != nil {
			return nil, fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return ctx, nil
}

// saveState writes the variables of ctx to the state file, if one is set.
func saveState(cmd *cobra.Command, ctx *linecalc.Context) error {
	path, _ := cmd.Root().PersistentFlags().GetString("state")
	if path == "" {
		return nil
	}
	b, err := ctx.MarshalVars()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
