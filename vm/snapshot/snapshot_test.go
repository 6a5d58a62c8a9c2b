package snapshot

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/xhaakon/qv4/vm"
)

func newTestEngine(t *testing.T) (*vm.Engine, *vm.Context) {
	t.Helper()
	e := vm.NewEngine()
	t.Cleanup(e.Close)
	return e, e.NewContext()
}

// buildGraph returns an array [1, 2.5, "s", _, obj, true, null] whose
// fourth element is a hole and whose obj has a back reference to the array.
func buildGraph(t *testing.T, e *vm.Engine, c *vm.Context, sparse bool) *vm.Object {
	t.Helper()
	arr := e.NewArray(vm.FromInt32(1), vm.FromFloat64(2.5), e.NewString("s"))
	if sparse {
		arr.Storage().Put(1<<20, vm.FromInt32(9))
		arr.Storage().Delete(1 << 20)
		if arr.Storage().Mode() != vm.Sparse {
			t.Fatal("array did not go sparse")
		}
	}
	obj := e.NewObject()
	if err := obj.Put(c, "self", arr.Value()); err != nil {
		t.Fatal(err)
	}
	if err := obj.Put(c, "name", e.NewString("child")); err != nil {
		t.Fatal(err)
	}
	arr.Storage().Put(4, obj.Value())
	arr.Storage().Put(5, vm.True)
	arr.Storage().Put(6, vm.Null)
	arr.SetLengthUnchecked(7)
	return arr
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	e, c := newTestEngine(t)
	arr := buildGraph(t, e, c, false)

	s, err := Capture(c, arr.Value())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(s.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(s.Nodes))
	}
	if s.Nodes[0].Length != 7 || len(s.Nodes[0].Elements) != 6 {
		t.Errorf("root node length %d with %d elements", s.Nodes[0].Length, len(s.Nodes[0].Elements))
	}

	e2, c2 := newTestEngine(t)
	v, err := Restore(e2, s)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got := vm.ObjectFromValue(v)
	if got == nil || !got.IsArray() || got.Length() != 7 {
		t.Fatalf("restored root = %v", v)
	}
	if got.HasIndexed(3) {
		t.Error("hole was filled on restore")
	}
	if s, err := c2.ToString(v); err != nil || s != "1,2.5,s,,[object Object],true," {
		t.Errorf("join = %q, %v", s, err)
	}
	child, _, _ := got.GetIndexed(c2, 4)
	self, err := vm.ObjectFromValue(child).Get(c2, "self")
	if err != nil || self != v {
		t.Errorf("back reference = %v, %v, want the restored array", self, err)
	}
}

func TestDenseAndSparseCaptureEqual(t *testing.T) {
	e, c := newTestEngine(t)
	dense, err := Capture(c, buildGraph(t, e, c, false).Value())
	if err != nil {
		t.Fatal(err)
	}
	sparse, err := Capture(c, buildGraph(t, e, c, true).Value())
	if err != nil {
		t.Fatal(err)
	}
	d1, err := Digest(dense)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Digest(sparse)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("dense and sparse arrays with the same elements capture differently")
	}
}

func TestWireRoundTrip(t *testing.T) {
	e, c := newTestEngine(t)
	s, err := Capture(c, buildGraph(t, e, c, true).Value())
	if err != nil {
		t.Fatal(err)
	}
	want, err := Digest(s)
	if err != nil {
		t.Fatal(err)
	}

	data, err := MarshalCBOR(s)
	if err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}
	fromCBOR, err := UnmarshalCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalCBOR: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fromStream, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	packed, err := MarshalMsgpack(s)
	if err != nil {
		t.Fatalf("MarshalMsgpack: %v", err)
	}
	fromMsgpack, err := UnmarshalMsgpack(packed)
	if err != nil {
		t.Fatalf("UnmarshalMsgpack: %v", err)
	}

	for name, got := range map[string]*Snapshot{"cbor": fromCBOR, "stream": fromStream, "msgpack": fromMsgpack} {
		d, err := Digest(got)
		if err != nil {
			t.Fatal(err)
		}
		if d != want {
			t.Errorf("%s round trip changed the snapshot", name)
		}
	}

	if _, err := UnmarshalCBOR([]byte{0xff}); err == nil {
		t.Error("UnmarshalCBOR accepted garbage")
	}
}

func TestCapturePrimitiveRoot(t *testing.T) {
	e, c := newTestEngine(t)
	s, err := Capture(c, vm.FromInt32(42))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Nodes) != 0 || s.Root.Kind != KindInteger {
		t.Fatalf("snapshot = %+v", s)
	}
	v, err := Restore(e, s)
	if err != nil || v != vm.FromInt32(42) {
		t.Errorf("Restore = %v, %v", v, err)
	}
}

func TestNegativeZeroSurvivesWire(t *testing.T) {
	e, c := newTestEngine(t)
	negZero := vm.FromFloat64(math.Copysign(0, -1))
	s, err := Capture(c, e.NewArray(negZero, vm.NaN).Value())
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalCBOR(s)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := UnmarshalCBOR(data)
	if err != nil {
		t.Fatal(err)
	}
	v, err := Restore(e, decoded)
	if err != nil {
		t.Fatal(err)
	}
	arr := vm.ObjectFromValue(v)
	first, _, _ := arr.GetIndexed(c, 0)
	if !first.IsDouble() || !math.Signbit(first.Float64()) {
		t.Errorf("element 0 = %v, want -0", first)
	}
	second, _, _ := arr.GetIndexed(c, 1)
	if second != vm.NaN {
		t.Errorf("element 1 = %v, want NaN", second)
	}
}

func TestCaptureErrors(t *testing.T) {
	e, c := newTestEngine(t)
	fn := e.NewFunction("f", func(*vm.Context, vm.Value, []vm.Value) (vm.Value, error) {
		return vm.Undefined, nil
	})
	arr := e.NewArray(fn.Value())
	if _, err := Capture(c, arr.Value()); err == nil || !strings.Contains(err.Error(), "native function") {
		t.Errorf("capturing a function error = %v", err)
	}

	getter := e.NewFunction("get", func(c *vm.Context, _ vm.Value, _ []vm.Value) (vm.Value, error) {
		return vm.Undefined, c.ThrowTypeError("no")
	})
	obj := e.NewArray()
	obj.DefineAccessor(0, getter.Value(), vm.Undefined)
	if _, err := Capture(c, obj.Value()); !vm.IsTypeError(err) {
		t.Errorf("throwing getter error = %v, want TypeError", err)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	e, _ := newTestEngine(t)
	ref := func(i uint32) Cell { return Cell{Kind: KindRef, Ref: i} }

	tests := []struct {
		name string
		s    Snapshot
		want string
	}{
		{"schema", Snapshot{Schema: 99}, "unsupported schema"},
		{"root ref", Snapshot{Schema: SchemaVersion, Root: ref(0)}, "out of range"},
		{"element ref", Snapshot{Schema: SchemaVersion, Root: ref(0), Nodes: []Node{
			{Class: vm.ClassArray, Length: 1, Elements: []Element{{Index: 0, Value: ref(5)}}},
		}}, "out of range"},
		{"beyond length", Snapshot{Schema: SchemaVersion, Root: ref(0), Nodes: []Node{
			{Class: vm.ClassArray, Length: 1, Elements: []Element{{Index: 3}}},
		}}, "beyond length"},
		{"order", Snapshot{Schema: SchemaVersion, Root: ref(0), Nodes: []Node{
			{Class: vm.ClassObject, Elements: []Element{{Index: 3}, {Index: 1}}},
		}}, "out of order"},
		{"kind", Snapshot{Schema: SchemaVersion, Root: Cell{Kind: 40}}, "unknown kind"},
		{"class", Snapshot{Schema: SchemaVersion, Root: ref(0), Nodes: []Node{
			{Class: vm.ClassFunction},
		}}, "cannot restore"},
	}
	for _, tt := range tests {
		_, err := Restore(e, &tt.s)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error = %v, want %q", tt.name, err, tt.want)
		}
	}
}
