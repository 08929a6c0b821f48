package axi

import (
	"encoding/binary"
	"fmt"
	"log"
)

// AddrBeat is a read-address or write-address channel transfer.
type AddrBeat struct {
	Addr  uint64
	Len   uint8
	Size  Size
	Burst BurstType
	ID    uint32
	Prot  Prot
}

// Count returns the number of data beats the burst covers.
func (a AddrBeat) Count() int {
	return DecodeLen(a.Len)
}

// BeatAddress returns the address of the i-th beat of the burst.
func (a AddrBeat) BeatAddress(i int) uint64 {
	if i < 0 || i >= a.Count() {
		log.Panicf("beat %d out of burst of %d", i, a.Count())
	}

	width := uint64(a.Size.Bytes())
	aligned := a.Addr &^ (width - 1)

	switch a.Burst {
	case BurstFixed:
		return a.Addr
	case BurstIncr:
		if i == 0 {
			return a.Addr
		}

		return aligned + uint64(i)*width
	case BurstWrap:
		total := width * uint64(a.Count())
		lower := a.Addr &^ (total - 1)

		return lower + (a.Addr-lower+uint64(i)*width)%total
	default:
		log.Panicf("reserved burst type %d", a.Burst)
	}

	return 0
}

// Addresses lists the addresses of all the beats of the burst.
func (a AddrBeat) Addresses() []uint64 {
	addrs := make([]uint64, a.Count())
	for i := range addrs {
		addrs[i] = a.BeatAddress(i)
	}

	return addrs
}

func (a AddrBeat) String() string {
	return fmt.Sprintf("addr 0x%x len %d size %d %s id %d",
		a.Addr, a.Len, a.Size.Bytes(), a.Burst, a.ID)
}

// ReadDataBeat is a read-data channel transfer.
type ReadDataBeat struct {
	ID   uint32
	Data []byte
	Resp Resp
	Last bool
}

// Word returns the data payload only. The response, ID and last fields are
// out-of-band and are not part of the word.
func (r ReadDataBeat) Word() []byte {
	return r.Data
}

// WriteDataBeat is a write-data channel transfer.
type WriteDataBeat struct {
	Data []byte
	Strb uint64
	Last bool
}

// Enabled tells if byte i of the beat is written.
func (w WriteDataBeat) Enabled(i int) bool {
	return w.Strb&(1<<i) != 0
}

// WriteRespBeat is a write-response channel transfer.
type WriteRespBeat struct {
	ID   uint32
	Resp Resp
}

// LiteAddrBeat is an AXI-Lite address channel transfer.
type LiteAddrBeat struct {
	Addr uint64
	Prot Prot
}

// LiteReadDataBeat is an AXI-Lite read-data channel transfer.
type LiteReadDataBeat struct {
	Data uint64
	Resp Resp
}

// LiteWriteDataBeat is an AXI-Lite write-data channel transfer.
type LiteWriteDataBeat struct {
	Data uint64
	Strb uint64
}

// LiteWriteRespBeat is an AXI-Lite write-response channel transfer.
type LiteWriteRespBeat struct {
	Resp Resp
}

// ToLite narrows a single-beat address to the AXI-Lite format. Bursts
// cannot be narrowed.
func (a AddrBeat) ToLite() LiteAddrBeat {
	if a.Count() != 1 {
		log.Panicf("cannot narrow a burst of %d beats to AXI-Lite", a.Count())
	}

	return LiteAddrBeat{Addr: a.Addr, Prot: a.Prot}
}

// FromLite widens an AXI-Lite address into a single-beat INCR address.
func FromLite(a LiteAddrBeat, size Size) AddrBeat {
	return AddrBeat{
		Addr:  a.Addr,
		Size:  size,
		Burst: BurstIncr,
		Prot:  a.Prot,
	}
}

// WordToUint64 reads a little-endian word of up to 8 bytes.
func WordToUint64(word []byte) uint64 {
	var buf [8]byte
	copy(buf[:], word)

	return binary.LittleEndian.Uint64(buf[:])
}

// Uint64ToWord writes v as a little-endian word of n bytes.
func Uint64ToWord(v uint64, n int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	word := make([]byte, n)
	copy(word, buf[:])

	return word
}
