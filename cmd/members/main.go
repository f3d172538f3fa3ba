package main

import (
	"os"

	"gitlab.com/dirk.krummacker/membership-service/internal/cli"
)

// Usage example on the command line:
// > go run main.go --data-dir /var/lib/gym list --status overdue
func main() {
	if err := cli.New().Execute(); err != nil {
		os.Exit(1)
	}
}
