// ./main.go
package main

import (
	"github.com/xkilldash9x/helmsman/cmd"
)

// main is the entry point for the helmsman CLI.
func main() {
	cmd.Execute()
}
