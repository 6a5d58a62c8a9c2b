package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xhaakon/qv4/vm"
)

var arrayCmd = &cobra.Command{
	Use:   "array [element]...",
	Short: "Run array operations and show the storage after each one",
	Long: `Builds an array from the arguments and applies each --op in turn.

Elements are numbers when they parse as one, "_" for a hole and strings
otherwise. Operations take comma separated arguments after a colon:

  push:v,...  pop  shift  unshift:v,...  reverse  sort
  slice:start,end  splice:start,count,v,...  join:sep
  indexOf:v  lastIndexOf:v  put:index,v  delete:index  length:n`,
	RunE: runArray,
}

func init() {
	arrayCmd.Flags().StringArrayP("op", "x", nil, "operation to apply (repeatable)")
	arrayCmd.Flags().Bool("sparse", false, "start from sparse storage")
}

func runArray(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()
	c := e.NewContext()

	keep := e.NewPersistent(e.NewArray().Value())
	defer keep.Release()
	arr := vm.ObjectFromValue(keep.Value())

	if sparse, _ := cmd.Flags().GetBool("sparse"); sparse {
		// A put far past the end forces promotion; the element is removed
		// again and the length restored.
		far := loaded.Config().MaxDenseIndex
		if gap := loaded.Config().SparseGap; gap < far {
			far = gap + 1
		}
		arr.Storage().Put(far, vm.Undefined)
		arr.Storage().Delete(far)
		arr.SetLengthUnchecked(0)
	}
	for i, a := range args {
		if a == "_" {
			continue
		}
		arr.Storage().Put(uint32(i), parseElement(e, a))
	}
	arr.SetLengthUnchecked(uint32(len(args)))

	out := cmd.OutOrStdout()
	printArray(out, c, "init", arr)

	ops, _ := cmd.Flags().GetStringArray("op")
	for _, op := range ops {
		result, err := applyOp(c, arr, op)
		if err != nil {
			errColor.Fprintf(out, "%-12s", op)
			fmt.Fprintln(out, err)
			if _, ok := vm.IsException(err); ok {
				continue
			}
			return err
		}
		if result != "" {
			okColor.Fprintf(out, "%-12s", "  =>")
			fmt.Fprintln(out, result)
		}
		printArray(out, c, op, arr)
	}
	return nil
}

func parseElement(e *vm.Engine, s string) vm.Value {
	switch s {
	case "undefined":
		return vm.Undefined
	case "null":
		return vm.Null
	case "true":
		return vm.True
	case "false":
		return vm.False
	}
	if d, err := strconv.ParseFloat(s, 64); err == nil {
		return vm.FromNumber(d)
	}
	return e.NewString(s)
}

func applyOp(c *vm.Context, arr *vm.Object, op string) (string, error) {
	e := c.Engine()
	name, rest, _ := strings.Cut(op, ":")
	var params []string
	if rest != "" {
		params = strings.Split(rest, ",")
	}
	values := make([]vm.Value, len(params))
	for i, p := range params {
		values[i] = parseElement(e, p)
	}
	arg := func(i int) vm.Value {
		if i < len(values) {
			return values[i]
		}
		return vm.Undefined
	}
	show := func(v vm.Value) (string, error) {
		return describe(c, v), nil
	}

	switch name {
	case "push":
		v, err := arr.Push(c, values...)
		if err != nil {
			return "", err
		}
		return show(v)
	case "pop":
		v, err := arr.Pop(c)
		if err != nil {
			return "", err
		}
		return show(v)
	case "shift":
		v, err := arr.Shift(c)
		if err != nil {
			return "", err
		}
		return show(v)
	case "unshift":
		v, err := arr.Unshift(c, values...)
		if err != nil {
			return "", err
		}
		return show(v)
	case "reverse":
		return "", arr.Reverse(c)
	case "sort":
		return "", arr.Sort(c, vm.Undefined)
	case "slice":
		r, err := arr.Slice(c, arg(0), arg(1))
		if err != nil {
			return "", err
		}
		return show(r.Value())
	case "splice":
		var items []vm.Value
		if len(values) > 2 {
			items = values[2:]
		}
		r, err := arr.Splice(c, arg(0), arg(1), items...)
		if err != nil {
			return "", err
		}
		return show(r.Value())
	case "join":
		sep := vm.Undefined
		if len(params) > 0 {
			sep = e.NewString(rest)
		}
		return arr.Join(c, sep)
	case "indexOf":
		n, err := arr.IndexOf(c, arg(0))
		return strconv.FormatInt(n, 10), err
	case "lastIndexOf":
		n, err := arr.LastIndexOf(c, arg(0))
		return strconv.FormatInt(n, 10), err
	case "put":
		i, err := c.ToUint32(arg(0))
		if err != nil {
			return "", err
		}
		return "", arr.PutIndexed(c, i, arg(1))
	case "delete":
		i, err := c.ToUint32(arg(0))
		if err != nil {
			return "", err
		}
		arr.DeleteIndexedProperty(i)
		return "", nil
	case "length":
		n, err := c.ToArrayLength(arg(0))
		if err != nil {
			return "", err
		}
		arr.SetLength(n)
		return "", nil
	}
	return "", fmt.Errorf("unknown operation %q", name)
}

// describe renders arrays element by element and everything else with
// ToString. Holes print as "_".
func describe(c *vm.Context, v vm.Value) string {
	if o := vm.ObjectFromValue(v); o != nil && o.IsArray() {
		parts := make([]string, 0, o.Length())
		for i := uint32(0); i < o.Length() && i < 64; i++ {
			el, ok, err := o.GetIndexed(c, i)
			switch {
			case err != nil:
				parts = append(parts, "!")
			case !ok:
				parts = append(parts, "_")
			default:
				parts = append(parts, describe(c, el))
			}
		}
		if o.Length() > 64 {
			parts = append(parts, fmt.Sprintf("... %d more", o.Length()-64))
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	if v.IsString() {
		return strconv.Quote(v.StringValue())
	}
	s, err := c.ToString(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

func printArray(out io.Writer, c *vm.Context, label string, arr *vm.Object) {
	s := arr.Storage()
	headColor.Fprintf(out, "%-12s", label)
	fmt.Fprint(out, describe(c, arr.Value()))
	dimColor.Fprintf(out, "  %s length=%d own=%d", s.Mode(), arr.Length(), s.OwnIndexedCount())
	if s.Mode() == vm.Dense {
		dimColor.Fprintf(out, " offset=%d dense=%d capacity=%d", s.Offset(), s.DenseLength(), s.Capacity())
	}
	fmt.Fprintln(out)
}
