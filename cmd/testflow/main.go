package main

import "github.com/victoMR/testFlow/cmd/testflow/cmd"

func main() {
	cmd.Execute()
}
