package main

import "pph-connect.com/pph-connect/cmd"

func main() {
	cmd.Execute()
}
