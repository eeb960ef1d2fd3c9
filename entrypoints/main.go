package main

import (
	"github.com/Laisky/laisky-changelog/cmd"
)

func main() {
	cmd.Execute()
}
