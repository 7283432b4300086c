package main

import "github.com/mcoot/ratinggame/internal/cli"

func main() {
	cli.Execute()
}
