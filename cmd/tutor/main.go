package main

import "ragtutor/internal/cli"

func main() {
	cli.Execute()
}
