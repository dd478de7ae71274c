package main

import "github.com/frahmantamala/workshop-management/cmd"

func main() {
	cmd.Execute()
}
