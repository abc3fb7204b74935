/*
Command-line tool for classifying the differences between snapshot tree listings.

Usage:

	$ treediff [<flags>] <subcommand> [<args> ...]

Use 'treediff help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kopia/treediff/cli"
	"github.com/kopia/treediff/internal/logfile"
)

func main() {
	app := cli.NewApp()
	kp := kingpin.New("treediff", "Snapshot tree diff engine").Author("http://kopia.github.io/")

	logfile.Attach(app, kp)

	app.Attach(kp)

	kingpin.MustParse(kp.Parse(os.Args[1:]))
}
