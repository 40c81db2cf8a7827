package main

import "github.com/Mohsinsiddi/rafflekit/cmd"

func main() {
	cmd.Execute()
}
