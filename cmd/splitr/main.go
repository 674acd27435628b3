package main

import "github.com/emiliopalmerini/splitr/internal/cli"

func main() {
	cli.Execute()
}
