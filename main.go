// ABOUTME: Entry point for the blackbox CLI
// ABOUTME: Signs in to the dashcam services and plays back recorded segments

package main

import (
	"fmt"
	"os"

	"github.com/neves-cloud/blackbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
