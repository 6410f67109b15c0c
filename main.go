package main

import "github.com/aure/rumtrack/cmd"

func main() {
	cmd.Execute()
}
