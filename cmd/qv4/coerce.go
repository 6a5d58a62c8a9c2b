package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xhaakon/qv4/vm"
)

var coerceCmd = &cobra.Command{
	Use:   "coerce <string>...",
	Short: "Show the numeric and string conversions of each argument",
	Long: `Each argument is treated as an ECMAScript string and converted with
ToNumber. The number is then shown through the integer conversions and the
Number.prototype formatting methods.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCoerce,
}

func init() {
	coerceCmd.Flags().Int("fixed", -1, "also show toFixed(n)")
	coerceCmd.Flags().Int("exponential", -1, "also show toExponential(n)")
	coerceCmd.Flags().Int("precision", -1, "also show toPrecision(n)")
	coerceCmd.Flags().Int("radix", 0, "also show toString(radix)")
}

func runCoerce(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()
	c := e.NewContext()

	fixed, _ := cmd.Flags().GetInt("fixed")
	exponential, _ := cmd.Flags().GetInt("exponential")
	precision, _ := cmd.Flags().GetInt("precision")
	radix, _ := cmd.Flags().GetInt("radix")

	out := cmd.OutOrStdout()
	for _, arg := range args {
		d := vm.StringToNumber(arg)
		headColor.Fprintf(out, "%s\n", strconv.Quote(arg))
		row := func(name, value string) {
			dimColor.Fprintf(out, "  %-16s", name)
			fmt.Fprintln(out, value)
		}
		rowErr := func(name string, s string, err error) {
			if err != nil {
				dimColor.Fprintf(out, "  %-16s", name)
				errColor.Fprintln(out, err)
				return
			}
			row(name, s)
		}

		row("ToNumber", vm.NumberToString(d))
		row("ToInteger", vm.NumberToString(vm.ToInteger(d)))
		row("ToInt32", strconv.FormatInt(int64(vm.ToInt32(d)), 10))
		row("ToUint32", strconv.FormatUint(uint64(vm.ToUint32(d)), 10))
		row("ToUint16", strconv.FormatUint(uint64(vm.ToUint16(d)), 10))
		row("ToBoolean", strconv.FormatBool(vm.ToBoolean(e.NewString(arg))))

		if fixed >= 0 {
			s, err := c.NumberToFixed(d, vm.FromInt32(int32(fixed)))
			rowErr(fmt.Sprintf("toFixed(%d)", fixed), s, err)
		}
		if exponential >= 0 {
			s, err := c.NumberToExponential(d, vm.FromInt32(int32(exponential)))
			rowErr(fmt.Sprintf("toExponential(%d)", exponential), s, err)
		}
		if precision >= 0 {
			s, err := c.NumberToPrecision(d, vm.FromInt32(int32(precision)))
			rowErr(fmt.Sprintf("toPrecision(%d)", precision), s, err)
		}
		if radix != 0 {
			s, err := c.NumberToStringRadix(d, vm.FromInt32(int32(radix)))
			rowErr(fmt.Sprintf("toString(%d)", radix), s, err)
		}
	}
	return nil
}
