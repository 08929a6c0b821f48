package axi

import (
	"fmt"
	"log"
	"math/bits"
)

// BurstType selects how the address advances between the beats of a burst.
type BurstType uint8

// Burst types, with their wire encodings.
const (
	BurstFixed BurstType = 0b00
	BurstIncr  BurstType = 0b01
	BurstWrap  BurstType = 0b10
)

func (b BurstType) String() string {
	switch b {
	case BurstFixed:
		return "FIXED"
	case BurstIncr:
		return "INCR"
	case BurstWrap:
		return "WRAP"
	default:
		return fmt.Sprintf("BurstType(%d)", uint8(b))
	}
}

// Resp is the response code carried by read-data and write-response beats.
type Resp uint8

// Response codes, with their wire encodings.
const (
	RespOkay   Resp = 0b00
	RespExOkay Resp = 0b01
	RespSlvErr Resp = 0b10
	RespDecErr Resp = 0b11
)

// IsOK tells if the response is OKAY. EXOKAY counts as not OK since exclusive
// accesses are never issued.
func (r Resp) IsOK() bool {
	return r == RespOkay
}

// IsError tells if the response reports a subordinate or decode error.
func (r Resp) IsError() bool {
	return r == RespSlvErr || r == RespDecErr
}

func (r Resp) String() string {
	switch r {
	case RespOkay:
		return "OKAY"
	case RespExOkay:
		return "EXOKAY"
	case RespSlvErr:
		return "SLVERR"
	case RespDecErr:
		return "DECERR"
	default:
		return fmt.Sprintf("Resp(%d)", uint8(r))
	}
}

// Prot is the 3-bit protection type of an address beat.
type Prot uint8

// Protection bits.
const (
	ProtPrivileged  Prot = 0b001
	ProtNonSecure   Prot = 0b010
	ProtInstruction Prot = 0b100
)

// Size is the log2-encoded number of bytes transferred in each beat.
type Size uint8

// SizeFromBytes encodes a beat width. The width must be a power of two
// between 1 and 128 bytes.
func SizeFromBytes(n int) Size {
	if n <= 0 || n > 128 || n&(n-1) != 0 {
		log.Panicf("beat width %d is not a power of two in [1, 128]", n)
	}

	return Size(bits.TrailingZeros(uint(n)))
}

// Bytes decodes the beat width in bytes.
func (s Size) Bytes() int {
	return 1 << s
}

// MaxBurstCount is the longest burst the 8-bit length field can express.
const MaxBurstCount = 256

// EncodeLen converts a beat count into the zero-based wire length.
func EncodeLen(count int) uint8 {
	if count < 1 || count > MaxBurstCount {
		log.Panicf("burst count %d out of range [1, %d]", count, MaxBurstCount)
	}

	return uint8(count - 1)
}

// DecodeLen converts a zero-based wire length into a beat count.
func DecodeLen(length uint8) int {
	return int(length) + 1
}

// FullStrobe returns a write strobe enabling all the bytes of an n-byte beat.
func FullStrobe(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << n) - 1
}
