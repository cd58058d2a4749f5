package main

import "github.com/Tiliavir/timeplan/cmd"

func main() {
	cmd.Execute()
}
