// Package mem models the memory behind a bus: a sparse byte Storage and a
// Responder that serves AXI4 read and write bursts out of it.
package mem
