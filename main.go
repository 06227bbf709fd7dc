package main

import "github.com/declmig/declmig/cmd"

func main() {
	cmd.Execute()
}
