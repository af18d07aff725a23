package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/argp"
)

var log = logrus.New()

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	cmd := argp.New("Embed TrueType fonts as subset CID fonts")
	cmd.AddCmd(&Embed{}, "embed", "Subset a font and write its CID font resources")
	cmd.AddCmd(&Info{}, "info", "Get font descriptor and cmap info")
	cmd.Parse()
}

// setLevel sets the log level, warnings are shown by default.
func setLevel(quiet, verbose bool) {
	if quiet {
		log.SetLevel(logrus.ErrorLevel)
	} else if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
}
