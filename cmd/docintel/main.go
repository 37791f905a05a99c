package main

import "docintel/internal/cli"

func main() {
	cli.Execute()
}
