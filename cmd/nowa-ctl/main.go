package main

import (
	"fmt"
	"os"

	"nowa/internal/ipc"
)

func main() {
	cmd := ipc.CmdListen
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := ipc.SendCommand(cmd); err != nil {
		fmt.Println("nowad not running:", err)
		os.Exit(1)
	}
}
