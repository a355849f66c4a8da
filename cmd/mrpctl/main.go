// Command mrpctl is a small demonstration CLI for this module: pair
// with an Apple TV, run pair-verify and connect, and drive playback
// with simple remote-control key presses.
package main

import (
	"fmt"
	"os"

	"github.com/arag0re/go-mrp-remote/cmd/mrpctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mrpctl:", err)
		os.Exit(1)
	}
}
