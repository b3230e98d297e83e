package main

import (
	"github.com/elastic/dorothy/cmd"
)

func main() {
	cmd.Execute()
}
