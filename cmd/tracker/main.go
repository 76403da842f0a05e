package main

import "github.com/ramiqadoumi/go-control-tracker/services/tracker/cli"

func main() {
	cli.Execute()
}
