package main

import (
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/server"
)

func main() {
	os.Exit(server.Main(os.Args[1:]))
}
