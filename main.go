// gfsim is a cycle-accurate simulator for the GF32 instruction set, with a
// 5-stage pipeline and a configurable cache hierarchy.
package main

import "github.com/gfslab/gfsim/cmd"

func main() {
	cmd.Execute()
}
