// Command mrec reads, writes, verifies and catalogs measurement records.
package main

import "github.com/mesh-intelligence/mrec/internal/cli"

func main() {
	cli.Execute()
}
