package main

import "github.com/golang-blockchain/btclib/cli"

func main() {
	cmd := cli.CommandLine{}
	cmd.Run()
}
