package main

import (
	"coldcopy/cmd"
)

func main() {
	cmd.Execute()
}
