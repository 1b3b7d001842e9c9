package main

import "github.com/ecoscore/backend/internal/cli"

func main() {
	cli.Execute()
}
