// Command collector copies trading-terminal history, account snapshots and open
// positions into PostgreSQL on a fixed polling interval.
package main

import (
	"fmt"
	"os"

	"terminal-collector/cmd/collector/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
