// Command axisim runs traffic scenarios on a simulated AXI system.
package main

func main() {
	Execute()
}
