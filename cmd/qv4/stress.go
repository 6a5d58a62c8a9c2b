package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xhaakon/qv4/vm"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Drive random array operations on several engines in parallel",
	Long: `Each engine runs on its own goroutine and applies --ops random
push/pop/shift/unshift/splice operations to one array, checking the result
against a plain Go slice after every step.`,
	Args: cobra.NoArgs,
	RunE: runStress,
}

func init() {
	stressCmd.Flags().Int("engines", 4, "number of engines")
	stressCmd.Flags().Int("ops", 10000, "operations per engine")
	stressCmd.Flags().Uint64("seed", 1, "random seed")
}

type stressResult struct {
	engine  int
	cycles  uint64
	mode    vm.StorageMode
	length  uint32
	elapsed time.Duration
}

func runStress(cmd *cobra.Command, _ []string) error {
	engines, _ := cmd.Flags().GetInt("engines")
	ops, _ := cmd.Flags().GetInt("ops")
	seed, _ := cmd.Flags().GetUint64("seed")

	results := make([]stressResult, engines)
	g, ctx := errgroup.WithContext(cmd.Context())
	for n := 0; n < engines; n++ {
		g.Go(func() error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			rng := rand.New(rand.NewPCG(seed, uint64(n)))
			start := time.Now()

			mode, length, err := stressEngine(e, rng, ops, func() bool { return ctx.Err() != nil })
			if err != nil {
				return fmt.Errorf("engine %d: %w", n, err)
			}
			results[n] = stressResult{
				engine:  n,
				cycles:  e.GCCycles(),
				mode:    mode,
				length:  length,
				elapsed: time.Since(start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		headColor.Fprintf(out, "engine %d ", r.engine)
		fmt.Fprintf(out, "length=%d storage=%s collections=%d ", r.length, r.mode, r.cycles)
		dimColor.Fprintln(out, r.elapsed.Round(time.Millisecond))
	}
	okColor.Fprintf(out, "%d engines x %d ops ok\n", engines, ops)
	return nil
}

// stressEngine mirrors every operation on a Go slice and fails on the first
// divergence.
func stressEngine(e *vm.Engine, rng *rand.Rand, ops int, cancelled func() bool) (vm.StorageMode, uint32, error) {
	c := e.NewContext()
	keep := e.NewPersistent(e.NewArray().Value())
	defer keep.Release()
	arr := vm.ObjectFromValue(keep.Value())
	var model []int32

	for i := 0; i < ops; i++ {
		if cancelled() {
			return 0, 0, nil
		}
		v := rng.Int32N(1 << 20)
		var err error
		switch rng.IntN(6) {
		case 0, 1:
			_, err = arr.Push(c, vm.FromInt32(v))
			model = append(model, v)
		case 2:
			_, err = arr.Pop(c)
			if len(model) > 0 {
				model = model[:len(model)-1]
			}
		case 3:
			_, err = arr.Shift(c)
			if len(model) > 0 {
				model = model[1:]
			}
		case 4:
			_, err = arr.Unshift(c, vm.FromInt32(v))
			model = append([]int32{v}, model...)
		case 5:
			if len(model) == 0 {
				continue
			}
			at := rng.IntN(len(model))
			_, err = arr.Splice(c, vm.FromInt32(int32(at)), vm.FromInt32(1), vm.FromInt32(v))
			model[at] = v
		}
		if err != nil {
			return 0, 0, err
		}
		// Garbage for the collector.
		e.NewObject()

		if arr.Length() != uint32(len(model)) {
			return 0, 0, fmt.Errorf("op %d: length %d, want %d", i, arr.Length(), len(model))
		}
	}
	for i, want := range model {
		got, ok, err := arr.GetIndexed(c, uint32(i))
		if err != nil {
			return 0, 0, err
		}
		if !ok || got != vm.FromInt32(want) {
			return 0, 0, fmt.Errorf("element %d: %v, want %d", i, got, want)
		}
	}
	return arr.Storage().Mode(), arr.Length(), nil
}
