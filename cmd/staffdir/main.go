// Command staffdir maintains a staff directory list backed by a remote
// list store or a local SQLite store.
package main

import "github.com/mesh-intelligence/staffdir/internal/cli"

func main() {
	cli.Execute()
}
