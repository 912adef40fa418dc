package main

import "greekmatch-backend/cmd"

func main() {
	cmd.Run()
}
