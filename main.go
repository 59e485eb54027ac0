package main

import "github.com/ValentinKolb/dDocs/cmd"

func main() {
	cmd.Execute()
}
