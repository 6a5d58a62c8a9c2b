package vm

import (
	"math"
	"slices"

	"fortio.org/safecast"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// ArrayStorage: hybrid dense/sparse indexed property storage
// ---------------------------------------------------------------------------

// MaxArrayLength is the largest representable array length (2^32 - 1).
const MaxArrayLength = math.MaxUint32

// slotAttr classifies a storage slot.
type slotAttr uint8

const (
	attrGeneric  slotAttr = iota // absent: a hole
	attrData                     // plain data slot
	attrAccessor                 // value is the getter, setter is the setter
)

// slot is one (Value, attribute) pair. The zero slot is a hole.
type slot struct {
	value  Value
	setter Value
	attr   slotAttr
}

func dataSlot(v Value) slot {
	return slot{value: v, attr: attrData}
}

// exists reports whether the slot holds an own property.
func (s slot) exists() bool {
	return s.attr != attrGeneric
}

// StorageMode is the active representation of an ArrayStorage.
type StorageMode uint8

const (
	Dense StorageMode = iota
	Sparse
)

func (m StorageMode) String() string {
	if m == Sparse {
		return "sparse"
	}
	return "dense"
}

// ArrayStorage holds the indexed properties of one object.
//
// In Dense mode the elements occupy buf[offset : offset+denseLen]; the slots
// before offset are head-room for unshift and len(buf)-offset is the capacity.
// In Sparse mode every element lives in the sparse map and buf is nil.
// Storage never goes back from Sparse to Dense.
type ArrayStorage struct {
	buf      []slot
	offset   int
	denseLen int
	sparse   *sparseArray
	length   uint32
	config   *Config

	// hasAccessors is set once any accessor slot was stored.
	hasAccessors bool
}

func newArrayStorage(cfg *Config) ArrayStorage {
	return ArrayStorage{config: cfg}
}

// Mode returns the current representation.
func (s *ArrayStorage) Mode() StorageMode {
	if s.sparse != nil {
		return Sparse
	}
	return Dense
}

// Length returns the logical length.
func (s *ArrayStorage) Length() uint32 {
	return s.length
}

// SetLengthUnchecked sets the logical length without touching the elements.
// The caller must already have made the representation consistent.
func (s *ArrayStorage) SetLengthUnchecked(n uint32) {
	s.length = n
}

// Capacity returns the number of dense slots available from index 0.
func (s *ArrayStorage) Capacity() int {
	return len(s.buf) - s.offset
}

// Offset returns the head-room in front of the dense region.
func (s *ArrayStorage) Offset() int {
	return s.offset
}

// DenseLength returns the number of slots of the dense region in use.
func (s *ArrayStorage) DenseLength() int {
	return s.denseLen
}

// hasElements reports whether any own indexed property exists.
func (s *ArrayStorage) hasElements() bool {
	if s.sparse != nil {
		return len(s.sparse.entries) > 0
	}
	for i := 0; i < s.denseLen; i++ {
		if s.buf[s.offset+i].exists() {
			return true
		}
	}
	return false
}

// denseIndex converts an array index into a dense slot position.
func (s *ArrayStorage) denseIndex(i uint32) (int, bool) {
	n, err := safecast.Conv[int](i)
	if err != nil {
		return 0, false
	}
	return n, n < s.denseLen
}

// get returns the own slot at index i.
func (s *ArrayStorage) get(i uint32) (slot, bool) {
	if s.sparse != nil {
		return s.sparse.get(i)
	}
	if n, ok := s.denseIndex(i); ok {
		sl := s.buf[s.offset+n]
		return sl, sl.exists()
	}
	return slot{}, false
}

// Get returns the own data value at index i. Accessor slots report their
// getter; use Object.GetIndexed to invoke it.
func (s *ArrayStorage) Get(i uint32) (Value, bool) {
	sl, ok := s.get(i)
	if !ok {
		return Undefined, false
	}
	return sl.value, true
}

// Put writes a data value at index i, extending the dense region in place
// when i is contiguous with it and promoting to sparse otherwise. Raises
// the logical length to i+1.
func (s *ArrayStorage) Put(i uint32, v Value) {
	s.putSlot(i, dataSlot(v))
}

func (s *ArrayStorage) putSlot(i uint32, sl slot) {
	if i == MaxArrayLength {
		// Not an array index; callers route it to a named property.
		return
	}
	if sl.attr == attrAccessor {
		s.hasAccessors = true
	}
	if s.sparse == nil {
		if n, ok := s.denseIndex(i); ok {
			s.buf[s.offset+n] = sl
		} else if s.denseEligible(i) {
			end, _ := safecast.Conv[int](i)
			s.ensureCapacity(end + 1)
			// Slots between denseLen and i are already holes.
			s.buf[s.offset+end] = sl
			s.denseLen = end + 1
		} else {
			s.promote("index out of dense range")
			s.sparse.put(i, sl)
		}
	} else {
		s.sparse.put(i, sl)
	}
	if i >= s.length {
		s.length = i + 1
	}
}

// denseEligible reports whether index i, beyond the dense region, can be
// added to it without promotion.
func (s *ArrayStorage) denseEligible(i uint32) bool {
	if i > s.config.MaxDenseIndex {
		return false
	}
	dl, err := safecast.Conv[uint32](s.denseLen)
	if err != nil {
		return false
	}
	return i-dl <= s.config.SparseGap
}

// Delete removes the own property at index i, leaving a hole. The logical
// length is unchanged.
func (s *ArrayStorage) Delete(i uint32) {
	if s.sparse != nil {
		s.sparse.remove(i)
		return
	}
	n, ok := s.denseIndex(i)
	if !ok {
		return
	}
	s.buf[s.offset+n] = slot{}
	// Keep denseLen tight so the tail stays append-only.
	for s.denseLen > 0 && !s.buf[s.offset+s.denseLen-1].exists() {
		s.denseLen--
	}
}

// Reserve pre-allocates dense capacity for n elements.
func (s *ArrayStorage) Reserve(n uint32) {
	if s.sparse != nil || n == 0 {
		return
	}
	if n > s.config.MaxDenseIndex {
		return
	}
	want, err := safecast.Conv[int](n)
	if err != nil {
		return
	}
	s.ensureCapacity(want)
}

// ensureCapacity grows the buffer geometrically so that at least n slots are
// available from index 0. Existing head-room is kept up to MinHeadRoom.
func (s *ArrayStorage) ensureCapacity(n int) {
	capacity := len(s.buf) - s.offset
	if capacity >= n {
		return
	}
	newCap := max(n, 2*capacity, 4)
	head := min(s.offset, s.config.MinHeadRoom)
	buf := make([]slot, head+newCap)
	copy(buf[head:], s.buf[s.offset:s.offset+s.denseLen])
	s.buf = buf
	s.offset = head
}

// growHeadRoom reallocates the buffer with head-room in front of the dense
// region. The head-room doubles with the size of the region.
func (s *ArrayStorage) growHeadRoom() {
	head := max(s.config.MinHeadRoom, s.denseLen)
	capacity := len(s.buf) - s.offset
	buf := make([]slot, head+capacity)
	copy(buf[head:], s.buf[s.offset:s.offset+s.denseLen])
	s.buf = buf
	s.offset = head
}

// shiftFront drops index 0 and renumbers every element down by one without
// copying. The caller adjusts the length.
func (s *ArrayStorage) shiftFront() {
	if s.sparse != nil {
		s.sparse.popFront()
		return
	}
	if s.denseLen == 0 {
		return
	}
	s.buf[s.offset] = slot{}
	s.offset++
	s.denseLen--
	for s.denseLen > 0 && !s.buf[s.offset+s.denseLen-1].exists() {
		s.denseLen--
	}
}

// unshiftFront renumbers every element up by one and stores v at index 0,
// consuming head-room. The caller adjusts the length.
func (s *ArrayStorage) unshiftFront(v Value) {
	if s.sparse == nil {
		dl, _ := safecast.Conv[uint32](s.denseLen)
		if dl >= s.config.MaxDenseIndex {
			s.promote("unshift beyond dense range")
		}
	}
	if s.sparse != nil {
		s.sparse.pushFront(dataSlot(v))
		return
	}
	if s.offset == 0 {
		s.growHeadRoom()
	}
	s.offset--
	s.denseLen++
	s.buf[s.offset] = dataSlot(v)
}

// popBack removes index length-1 when it is the last dense slot.
func (s *ArrayStorage) popBack() {
	if s.length == 0 {
		return
	}
	s.Delete(s.length - 1)
}

// Push appends v at index length. Returns false when the length is already
// MaxArrayLength.
func (s *ArrayStorage) Push(v Value) bool {
	if s.length == MaxArrayLength {
		return false
	}
	s.Put(s.length, v)
	return true
}

// Pop removes and returns the element at length-1. A hole pops as undefined.
func (s *ArrayStorage) Pop() Value {
	if s.length == 0 {
		return Undefined
	}
	v, _ := s.Get(s.length - 1)
	s.popBack()
	s.length--
	return v
}

// Shift removes and returns the element at index 0, renumbering the rest.
func (s *ArrayStorage) Shift() Value {
	if s.length == 0 {
		return Undefined
	}
	v, _ := s.Get(0)
	s.shiftFront()
	s.length--
	return v
}

// Unshift inserts values at the front in order. Returns false when the new
// length would exceed MaxArrayLength.
func (s *ArrayStorage) Unshift(values ...Value) bool {
	if uint64(s.length)+uint64(len(values)) > MaxArrayLength {
		return false
	}
	for i := len(values) - 1; i >= 0; i-- {
		s.unshiftFront(values[i])
		s.length++
	}
	return true
}

// promote moves every element into the sparse map.
func (s *ArrayStorage) promote(reason string) {
	if s.sparse != nil {
		return
	}
	sp := &sparseArray{}
	for n := 0; n < s.denseLen; n++ {
		sl := s.buf[s.offset+n]
		if sl.exists() {
			sp.entries = append(sp.entries, sparseEntry{key: int64(n), slot: sl})
		}
	}
	arrayLogger().Debugf("promoting storage to sparse (%s): %d elements, length %d",
		reason, len(sp.entries), s.length)
	s.sparse = sp
	s.buf = nil
	s.offset = 0
	s.denseLen = 0
}

// Each visits every own element in ascending index order until fn returns
// false.
func (s *ArrayStorage) Each(fn func(i uint32, v Value) bool) {
	s.each(func(i uint32, sl slot) bool { return fn(i, sl.value) })
}

func (s *ArrayStorage) each(fn func(i uint32, sl slot) bool) {
	if s.sparse != nil {
		for _, e := range s.sparse.entries {
			if !fn(uint32(e.key+s.sparse.bias), e.slot) {
				return
			}
		}
		return
	}
	for n := 0; n < s.denseLen; n++ {
		sl := s.buf[s.offset+n]
		if !sl.exists() {
			continue
		}
		if !fn(uint32(n), sl) {
			return
		}
	}
}

// eachReverse visits every own element in descending index order until fn
// returns false.
func (s *ArrayStorage) eachReverse(fn func(i uint32, sl slot) bool) {
	if s.sparse != nil {
		for k := len(s.sparse.entries) - 1; k >= 0; k-- {
			e := s.sparse.entries[k]
			if !fn(uint32(e.key+s.sparse.bias), e.slot) {
				return
			}
		}
		return
	}
	for n := s.denseLen - 1; n >= 0; n-- {
		sl := s.buf[s.offset+n]
		if sl.exists() && !fn(uint32(n), sl) {
			return
		}
	}
}

// nextIndex returns the smallest own index at or above from.
func (s *ArrayStorage) nextIndex(from uint32) (uint32, bool) {
	if s.sparse != nil {
		pos, _ := s.sparse.search(from)
		if pos < len(s.sparse.entries) {
			e := s.sparse.entries[pos]
			return uint32(e.key + s.sparse.bias), true
		}
		return 0, false
	}
	start, err := safecast.Conv[int](from)
	if err != nil {
		return 0, false
	}
	for n := start; n < s.denseLen; n++ {
		if s.buf[s.offset+n].exists() {
			return uint32(n), true
		}
	}
	return 0, false
}

// OwnIndexedCount returns the number of own indexed properties.
func (s *ArrayStorage) OwnIndexedCount() int {
	count := 0
	s.each(func(uint32, slot) bool {
		count++
		return true
	})
	return count
}

// truncate deletes every element at or above n.
func (s *ArrayStorage) truncate(n uint32) {
	if s.sparse != nil {
		s.sparse.truncate(n)
		return
	}
	end, err := safecast.Conv[int](n)
	if err != nil || end >= s.denseLen {
		return
	}
	for k := end; k < s.denseLen; k++ {
		s.buf[s.offset+k] = slot{}
	}
	s.denseLen = end
	for s.denseLen > 0 && !s.buf[s.offset+s.denseLen-1].exists() {
		s.denseLen--
	}
}

func (s *ArrayStorage) trace(mark func(Value)) {
	s.each(func(_ uint32, sl slot) bool {
		mark(sl.value)
		if sl.attr == attrAccessor {
			mark(sl.setter)
		}
		return true
	})
}

// ---------------------------------------------------------------------------
// sparseArray: ordered index -> slot map
// ---------------------------------------------------------------------------

// sparseEntry stores an element under key; its index is key + bias.
type sparseEntry struct {
	key  int64
	slot slot
}

// sparseArray keeps entries sorted by key. The bias renumbers every index at
// once, which makes shift and unshift independent of the entry count apart
// from the front insertion itself.
type sparseArray struct {
	entries []sparseEntry
	bias    int64
}

func (sp *sparseArray) search(i uint32) (int, bool) {
	key := int64(i) - sp.bias
	return slices.BinarySearchFunc(sp.entries, key, func(e sparseEntry, k int64) int {
		switch {
		case e.key < k:
			return -1
		case e.key > k:
			return 1
		}
		return 0
	})
}

func (sp *sparseArray) get(i uint32) (slot, bool) {
	if pos, ok := sp.search(i); ok {
		return sp.entries[pos].slot, true
	}
	return slot{}, false
}

func (sp *sparseArray) put(i uint32, sl slot) {
	pos, ok := sp.search(i)
	if ok {
		sp.entries[pos].slot = sl
		return
	}
	sp.entries = slices.Insert(sp.entries, pos, sparseEntry{key: int64(i) - sp.bias, slot: sl})
}

func (sp *sparseArray) remove(i uint32) {
	if pos, ok := sp.search(i); ok {
		sp.entries = slices.Delete(sp.entries, pos, pos+1)
	}
}

// popFront drops index 0 if present and renumbers the rest down by one.
func (sp *sparseArray) popFront() {
	if len(sp.entries) > 0 && sp.entries[0].key+sp.bias == 0 {
		sp.entries[0] = sparseEntry{}
		sp.entries = sp.entries[1:]
	}
	sp.bias--
}

// pushFront renumbers every index up by one and stores sl at index 0.
func (sp *sparseArray) pushFront(sl slot) {
	sp.bias++
	sp.entries = slices.Insert(sp.entries, 0, sparseEntry{key: -sp.bias, slot: sl})
}

func (sp *sparseArray) truncate(n uint32) {
	pos, _ := sp.search(n)
	for k := pos; k < len(sp.entries); k++ {
		sp.entries[k] = sparseEntry{}
	}
	sp.entries = sp.entries[:pos]
}

func arrayLogger() commonlog.Logger {
	return commonlog.GetLogger("qv4.array")
}
