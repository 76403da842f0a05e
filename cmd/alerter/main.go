package main

import "github.com/ramiqadoumi/go-control-tracker/services/alerter/cli"

func main() {
	cli.Execute()
}
