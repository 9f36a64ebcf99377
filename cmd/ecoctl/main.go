package main

import "github.com/ecoh2o/portal/cmd/ecoctl/cmd"

func main() {
	cmd.Execute()
}
