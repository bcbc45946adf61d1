package main

import (
	"github.com/archlog/archlog/cmd"
)

func main() {
	cmd.Execute()
}
