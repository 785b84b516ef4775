package main

import "github.com/dszqbsm/stockdaily/cmd"

func main() {
	cmd.Execute()
}
