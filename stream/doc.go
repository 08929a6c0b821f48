// Package stream provides the ready/valid handshake channel that connects
// every component of the bus engine, and the packetizer that marks packet
// boundaries on a stream.
//
// A Channel is owned by exactly one producer and one consumer. The producer
// asserts valid by calling Send; the payload is then frozen until the consumer
// takes it with Retrieve, which is the ready side of the handshake. A beat sent
// in cycle c becomes visible to the consumer from cycle c+1, so valid never
// depends on ready within a cycle.
package stream
