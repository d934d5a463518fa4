package main

import "flashdl/cmd"

func main() {
	cmd.Execute()
}
