package main

import (
	"os"

	"github.com/waypost/waypost/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
