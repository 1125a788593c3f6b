package main

import "guildsync/cmd"

func main() {
	cmd.Execute()
}
