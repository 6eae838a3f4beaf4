package main

import "github.com/oshokin/update-server/cmd/update-client/cmd"

func main() {
	cmd.Execute()
}
