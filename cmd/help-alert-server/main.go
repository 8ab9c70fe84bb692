package main

import "github.com/oshokin/help-alert/cmd/help-alert-server/cmd"

func main() {
	cmd.Execute()
}
