package main

import "github.com/ihh/dnastore/cmd"

func main() {
	cmd.Execute() // initialize cobra commands
}
