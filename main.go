package main

import "github.com/neo/wordextremist_backend/cmd"

func main() {
	cmd.Execute()
}
