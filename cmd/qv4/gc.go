package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xhaakon/qv4/vm"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Allocate objects, hold some of them, and run the collector",
	Long: `Allocates --objects arrays, keeps every --keep'th one alive through a
persistent handle and watches the rest through weak handles. After a
collection the surviving and cleared counts are printed.`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	gcCmd.Flags().Int("objects", 1000, "number of arrays to allocate")
	gcCmd.Flags().Int("keep", 10, "keep every n-th array alive")
}

func runGC(cmd *cobra.Command, _ []string) error {
	objects, _ := cmd.Flags().GetInt("objects")
	every, _ := cmd.Flags().GetInt("keep")
	if objects < 0 || every < 1 {
		return fmt.Errorf("--objects must be >= 0 and --keep >= 1")
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	var strong []vm.Persistent
	var weak []vm.Weak
	defer func() {
		for i := range strong {
			strong[i].Release()
		}
		for i := range weak {
			weak[i].Release()
		}
	}()

	for i := 0; i < objects; i++ {
		arr := e.NewArray(vm.FromInt32(int32(i)), e.NewString(fmt.Sprint("item ", i)))
		weak = append(weak, e.NewWeak(arr.Value()))
		if i%every == 0 {
			strong = append(strong, e.NewPersistent(arr.Value()))
		}
	}

	out := cmd.OutOrStdout()
	before := e.Heap().Live()
	freed := e.CollectGarbage()
	cleared := 0
	for _, w := range weak {
		if w.Value() == vm.Undefined {
			cleared++
		}
	}

	headColor.Fprintln(out, e)
	row := func(name string, v any) {
		dimColor.Fprintf(out, "  %-18s", name)
		fmt.Fprintln(out, v)
	}
	row("cycles", e.GCCycles())
	row("live before", before)
	row("freed", freed)
	row("live after", e.Heap().Live())
	row("heap capacity", e.Heap().Capacity())
	row("strong handles", e.StrongHandleCount())
	row("weak handles", e.WeakHandleCount())
	row("weak cleared", cleared)
	if want := objects - len(strong); cleared != want {
		errColor.Fprintf(out, "  expected %d weak handles to clear\n", want)
	} else {
		okColor.Fprintln(out, "  ok")
	}
	return nil
}
