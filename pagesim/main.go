// Command pagesim runs a paging simulation over a trace of virtual
// addresses.
package main

import "github.com/sarchlab/pagesim/pagesim/cmd"

func main() {
	cmd.Execute()
}
