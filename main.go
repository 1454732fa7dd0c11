package main

import (
	"github.com/0xERR0R/resolvd/cmd"
)

func main() {
	cmd.Execute()
}
