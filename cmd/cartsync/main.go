// Command cartsync drives a storefront cart and checkout from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/eshaffer321/cartsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
