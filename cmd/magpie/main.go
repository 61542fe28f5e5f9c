package main

import (
	"os"

	flags "github.com/jessevdk/go-flags"
)

type options struct {
	Migrate MigrateCommand `command:"migrate" description:"Apply database migrations"`
	Sync    SyncCommand    `command:"sync" description:"Synchronize local resource trees against backing services"`
}

func main() {
	parser := flags.NewParser(&options{}, flags.HelpFlag|flags.PassDoubleDash)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		os.Exit(1)
	}
}
