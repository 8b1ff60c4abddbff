package main

import "github.com/kebairia/shelfsafe/cmd"

func main() {
	cmd.Execute()
}
