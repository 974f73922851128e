package main

import "github.com/papapumpkin/extorder/cmd"

func main() {
	cmd.Execute()
}
