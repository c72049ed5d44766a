package main

import (
	"github.com/razeblock/raze/src/cmd/raze/command"
)

func main() {
	command.Execute()
}
