package main

import "github.com/tanq16/tubeq/cmd"

func main() {
	cmd.Execute()
}
