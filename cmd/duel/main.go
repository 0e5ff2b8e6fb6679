package main

import "github.com/mcoot/duelrooms/internal/cli"

func main() {
	cli.Execute()
}
