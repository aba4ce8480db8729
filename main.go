package main

import (
	"github.com/openpdu/wattboxctl/cmd"
)

func main() {
	cmd.Execute()
}
