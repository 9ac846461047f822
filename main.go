package main

import "github.com/theirongolddev/finscore/cmd"

func main() {
	cmd.Execute()
}
