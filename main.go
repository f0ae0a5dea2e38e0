package main

import (
	"os"

	"DaemonRDF/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
