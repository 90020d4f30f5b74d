package main

import "github.com/chazu/printprep/internal/cmd"

func main() {
	cmd.Parse()
}
