package main

import "github.com/opsward/opsward/internal/cli"

func main() {
	cli.Execute()
}
