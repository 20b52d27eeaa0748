package main

import "github.com/onionwatch/onionwatch/cmd"

func main() {
	cmd.Execute()
}
