package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xhaakon/qv4/vm"
	"github.com/xhaakon/qv4/vm/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write and read object graph snapshots",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save <file> [element]...",
	Short: "Build an array from the elements and write its snapshot",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSnapshotSave,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Restore a snapshot and print the root value",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotShow,
}

func init() {
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.PersistentFlags().String("format", "cbor", "encoding (cbor|msgpack)")
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()
	c := e.NewContext()

	sc := e.OpenScope()
	defer sc.Close()
	arr := e.NewArray()
	sc.Hold(arr.Value())
	for i, a := range args[1:] {
		if a != "_" {
			arr.Storage().Put(uint32(i), parseElement(e, a))
		}
	}
	arr.SetLengthUnchecked(uint32(len(args) - 1))

	s, err := snapshot.Capture(c, arr.Value())
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	switch format {
	case "cbor":
		data, err := snapshot.MarshalCBOR(s)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	case "msgpack":
		if err := snapshot.Encode(f, s); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	return printDigest(cmd, s)
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	var s *snapshot.Snapshot
	switch format {
	case "cbor":
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if s, err = snapshot.UnmarshalCBOR(data); err != nil {
			return err
		}
	case "msgpack":
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if s, err = snapshot.Decode(f); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()
	c := e.NewContext()

	root, err := snapshot.Restore(e, s)
	if err != nil {
		return err
	}
	keep := e.NewPersistent(root)
	defer keep.Release()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, describe(c, keep.Value()))
	if o := vm.ObjectFromValue(keep.Value()); o != nil {
		dimColor.Fprintf(out, "%s storage, %d nodes\n", o.Storage().Mode(), len(s.Nodes))
	}
	return printDigest(cmd, s)
}

func printDigest(cmd *cobra.Command, s *snapshot.Snapshot) error {
	sum, err := snapshot.Digest(s)
	if err != nil {
		return err
	}
	dimColor.Fprint(cmd.OutOrStdout(), "sha256 ")
	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(sum[:]))
	return nil
}
