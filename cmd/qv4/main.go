// qv4 is a developer tool for poking at the value, coercion and array
// storage core of the engine.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/xhaakon/qv4/manifest"
	"github.com/xhaakon/qv4/vm"
)

var rootCmd = &cobra.Command{
	Use:               "qv4",
	Short:             "Inspect ECMAScript values, coercions and array storage",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	headColor = color.New(color.FgCyan, color.Bold)
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// loaded is the manifest selected by setup.
var loaded *manifest.Manifest

func init() {
	rootCmd.AddCommand(coerceCmd)
	rootCmd.AddCommand(arrayCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().String("config", "", "directory holding qv4.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().Int("gc-threshold", -1, "override engine.gc-threshold")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errColor.Fprintf(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	switch mode, _ := cmd.Flags().GetString("color"); mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color %q (want auto, on or off)", mode)
	}

	var err error
	if dir, _ := cmd.Flags().GetString("config"); dir != "" {
		loaded, err = manifest.Load(dir)
	} else {
		loaded, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	if loaded == nil {
		loaded = manifest.Default()
	}

	if t, _ := cmd.Flags().GetInt("gc-threshold"); t >= 0 {
		loaded.Engine.GCThreshold = t
	}

	verbosity := loaded.Log.Verbosity
	if v, _ := cmd.Flags().GetCount("verbose"); v > 0 {
		verbosity = v
	}
	commonlog.Configure(verbosity, loaded.LogPath())
	return nil
}

// newEngine creates an engine from the loaded configuration.
func newEngine() (*vm.Engine, error) {
	e, err := vm.NewEngineWithConfig(loaded.Config())
	if err != nil {
		return nil, fmt.Errorf("cannot create engine: %w", err)
	}
	return e, nil
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
