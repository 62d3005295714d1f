package main

import "github.com/mcbarinov/accounts-monitor/cmd"

func main() {
	cmd.Execute()
}
