package main

import "github.com/aweris/assetsync/cmd/assetsync/cmd"

func main() {
	cmd.Execute()
}
