package main

import "github.com/oshokin/help-alert/cmd/help-alert-keys/cmd"

func main() {
	cmd.Execute()
}
