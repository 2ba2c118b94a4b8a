package main

import "triage/cmd"

func main() {
	cmd.Execute()
}
