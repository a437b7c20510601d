package main

import "github.com/naka-gawa/star-neighbours/cmd"

func main() {
	cmd.Execute()
}
