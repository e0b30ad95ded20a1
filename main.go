package main

import (
	"github.com/topology-sim/topology-sim/cmd"
)

func main() {
	cmd.Execute()
}
