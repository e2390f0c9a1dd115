package main

import "github.com/kirbyniko/statehouse/cmd"

func main() {
	cmd.Execute()
}
