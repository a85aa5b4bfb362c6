package main

import "github.com/arbiterhq/arbiter/cmd"

func main() {
	cmd.Execute()
}
