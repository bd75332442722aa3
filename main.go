package main

import "github.com/umapps/aci-deploy/cmd"

func main() {
	cmd.Execute()
}
