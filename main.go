// The main package for the dhc-crawler executable.
package main

import (
	"github.com/JakeFAU/dhc-order-crawler/cmd"
)

func main() {
	cmd.Execute()
}
