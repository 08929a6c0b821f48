package mem

import (
	"fmt"
	"sync"
)

// An AccessError reports an access that falls outside a storage.
type AccessError struct {
	Addr     uint64
	Len      uint64
	Capacity uint64
}

func (e *AccessError) Error() string {
	return fmt.Sprintf(
		"accessing [0x%x, 0x%x) beyond the storage capacity 0x%x",
		e.Addr, e.Addr+e.Len, e.Capacity)
}

// A Storage keeps the data of a memory.
//
// The storage manages the data in units, similar to pages. Units that are
// never touched take no memory, so a large capacity is cheap.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage with 4 KB units.
func NewStorage(capacity uint64) *Storage {
	return NewStorageWithUnitSize(capacity, 4*KB)
}

// NewStorageWithUnitSize creates a storage that allocates unitSize bytes at a
// time.
func NewStorageWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("unit size must be positive")
	}

	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage holds.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Contains tells if [addr, addr+n) lies within the storage.
func (s *Storage) Contains(addr, n uint64) bool {
	return addr < s.capacity && n <= s.capacity-addr
}

func (s *Storage) unit(addr uint64, create bool) []byte {
	base := addr - addr%s.unitSize

	unit, ok := s.data[base]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[base] = unit
	}

	return unit
}

// Read returns a copy of n bytes starting at addr. Bytes never written read
// as zero.
func (s *Storage) Read(addr, n uint64) ([]byte, error) {
	if !s.Contains(addr, n) {
		return nil, &AccessError{Addr: addr, Len: n, Capacity: s.capacity}
	}

	s.Lock()
	defer s.Unlock()

	res := make([]byte, n)
	done := uint64(0)

	for done < n {
		curr := addr + done
		inUnit := curr % s.unitSize
		chunk := min(n-done, s.unitSize-inUnit)

		if unit := s.unit(curr, false); unit != nil {
			copy(res[done:done+chunk], unit[inUnit:inUnit+chunk])
		}

		done += chunk
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	n := uint64(len(data))
	if !s.Contains(addr, n) {
		return &AccessError{Addr: addr, Len: n, Capacity: s.capacity}
	}

	s.Lock()
	defer s.Unlock()

	done := uint64(0)

	for done < n {
		curr := addr + done
		inUnit := curr % s.unitSize
		chunk := min(n-done, s.unitSize-inUnit)

		unit := s.unit(curr, true)
		copy(unit[inUnit:inUnit+chunk], data[done:done+chunk])

		done += chunk
	}

	return nil
}

// WriteStrobed stores the bytes of data whose strobe bit is set. Bit i of
// strb enables data[i].
func (s *Storage) WriteStrobed(addr uint64, data []byte, strb uint64) error {
	n := uint64(len(data))
	if !s.Contains(addr, n) {
		return &AccessError{Addr: addr, Len: n, Capacity: s.capacity}
	}

	s.Lock()
	defer s.Unlock()

	for i := range data {
		if strb&(1<<i) == 0 {
			continue
		}

		curr := addr + uint64(i)
		s.unit(curr, true)[curr%s.unitSize] = data[i]
	}

	return nil
}

// NumAllocatedUnits returns the number of units holding data.
func (s *Storage) NumAllocatedUnits() int {
	s.Lock()
	defer s.Unlock()

	return len(s.data)
}
