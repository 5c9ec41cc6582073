package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-donor-auth/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
