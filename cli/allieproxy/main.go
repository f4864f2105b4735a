package main

import (
	"fmt"
	"os"

	allieproxycmder "github.com/allie-chat/allieproxy/cmd/allieproxy"
)

func main() {
	cmd := allieproxycmder.NewAllieProxyCmd()

	err := cmd.Execute()
	if err != nil {
		fmt.Printf("Error executing root command: %v\n", err)
		os.Exit(1)
	}
}
