package main

import "github.com/marshallshelly/pebble-invoice/cmd/pebble-invoice/commands"

func main() {
	commands.Execute()
}
