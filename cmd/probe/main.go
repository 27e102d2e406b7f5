package main

import "github.com/suar-net/suar-probe/internal/cli"

func main() {
	cli.Execute()
}
