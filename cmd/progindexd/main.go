package main

import "github.com/LeJamon/goProgIndex/internal/cli"

func main() {
	cli.Execute()
}
