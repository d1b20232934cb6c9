package main

import "github.com/fetchd-app/fetchd/cmd"

func main() {
	cmd.Execute()
}
