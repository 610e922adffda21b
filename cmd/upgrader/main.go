package main

import "github.com/quartzlab/upgrader/internal/cli"

func main() {
	cli.Execute()
}
