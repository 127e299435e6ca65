package main

import "github.com/nhle/inboxdigest/cmd"

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
