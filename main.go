package main

import (
	"github.com/axellelanca/shortener/cmd"
	_ "github.com/axellelanca/shortener/cmd/cli"
	_ "github.com/axellelanca/shortener/cmd/server"
)

func main() {
	cmd.Execute()
}
