package main

import "github.com/monroehq/photo-pairer/cmd"

func main() {
	cmd.Execute()
}
