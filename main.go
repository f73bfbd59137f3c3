package main

import "github.com/blogem/linkedin-login/cmd"

func main() {
	cmd.Execute()
}
