// Package axi defines the AXI4 and AXI4-Lite wire formats: the burst and
// response encodings, the beats that travel on each of the five channels, and
// the channel bundles that connect a manager to a subordinate.
//
// Every channel field is owned by one side. Address, write-data and read
// address beats are built by the manager; read-data and write-response beats
// by the subordinate. Conversions between the full and the Lite formats, and
// between bus beats and plain data words, are explicit functions rather than
// structural matches, so no field disappears silently.
package axi
