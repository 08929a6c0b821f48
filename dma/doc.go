// Package dma provides streaming AXI4 managers. The Reader turns a stream of
// word addresses into bursts on a read channel and streams the returned words
// back; the Writer does the same for (address, word) pairs on the write
// channels.
//
// Bus errors are never retried. They are counted so that the caller can act
// on them, and the streams keep flowing.
package dma
