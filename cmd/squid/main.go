// Command squid builds and serves a squid project with no Go route modules.
// Projects with API or props modules in Go call squid.New().Main() from
// their own main package instead.
package main

import "github.com/vango-dev/squid"

func main() {
	squid.New().Main()
}
