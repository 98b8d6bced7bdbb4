package main

import "examexport/cmd"

func main() {
	cmd.Execute()
}
