package main

import "floorplan/cmd/planctl/cmd"

func main() {
	cmd.Execute()
}
