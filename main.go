// Command portforge builds bulk package sets in parallel from a ports
// tree, sandboxing each build in its own worker slot.
package main

import "portforge/cmd"

func main() {
	cmd.Execute()
}
