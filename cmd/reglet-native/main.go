// Command reglet-native inspects and drives native reglet modules.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/reglet-dev/reglet-native/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
