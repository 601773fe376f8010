package main

import "github.com/wingolabs/roundcore/cmd"

func main() {
	cmd.Execute()
}
