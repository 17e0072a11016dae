package main

import "github.com/fakeyudi/tomato/cmd"

func main() {
	cmd.Execute()
}
