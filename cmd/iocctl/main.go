// Command iocctl inspects the application container from the shell.
//
//	iocctl explain:service config
//	iocctl alias:resolve mailer testing
//	iocctl state:export > state.yaml
package main

import (
	"fmt"
	"os"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/console"
	"github.com/km-arc/go-ioc/framework/container"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(args []string) error {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "iocctl: %v\n", err)
		return err
	}
	defer application.Close()

	if err := application.Boot(); err != nil {
		fmt.Fprintf(os.Stderr, "iocctl: %v\n", err)
		return err
	}

	var opts []console.Option
	if adapter, err := container.Resolve[ai.Adapter](application.Container, "ai"); err == nil {
		opts = append(opts, console.WithAdapter(adapter))
	}
	return console.NewKernel(application.Container, os.Stdout, opts...).Run(args)
}
