package main

import "github.com/luminapay/ms-go-callbacks/cmd"

func main() {
	cmd.Execute()
}
