package main

import "github.com/encodeous/nyroute/cmd"

func main() {
	cmd.Execute()
}
