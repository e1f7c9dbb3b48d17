package main

import (
	"github.com/telemetrylab/dtnet/cmd"
)

func main() {
	cmd.Execute()
}
