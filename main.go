package main

import "github.com/Tiliavir/astro-journal/cmd"

func main() {
	cmd.Execute()
}
