package main

import "github.com/oshokin/help-alert/cmd/help-alert/cmd"

func main() {
	cmd.Execute()
}
