package main

import "github.com/sadoj/intel-backend/cmd"

func main() {
	cmd.Execute()
}
