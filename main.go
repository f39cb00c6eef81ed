package main

import "marketplace-sync/cmd"

func main() {
	cmd.Execute()
}
