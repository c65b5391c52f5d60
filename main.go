package main

import "github.com/vvaria04/Traffic-light-Management/internal/cmd"

func main() {
	cmd.Execute()
}
