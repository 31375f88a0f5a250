package main

import "github.com/xkilldash9x/lazydom/cmd"

func main() {
	cmd.Execute()
}
