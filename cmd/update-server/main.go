package main

import "github.com/oshokin/update-server/cmd/update-server/cmd"

func main() {
	cmd.Execute()
}
