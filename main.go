package main

import "github.com/njmarch/goac/cmd"

func main() {
	cmd.Execute()
}
