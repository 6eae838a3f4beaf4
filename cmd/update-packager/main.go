package main

import "github.com/oshokin/update-server/cmd/update-packager/cmd"

func main() {
	cmd.Execute()
}
