package main

import "github.com/ValentinKolb/udsrpc/cmd"

func main() {
	cmd.Execute()
}
