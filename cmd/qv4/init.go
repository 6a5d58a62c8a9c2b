package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xhaakon/qv4/manifest"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a qv4.toml holding the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", target, err)
	}

	path := filepath.Join(target, manifest.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := manifest.Default().Save(target); err != nil {
		return err
	}
	okColor.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	return nil
}
