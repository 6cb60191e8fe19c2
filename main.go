package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/habedi/tasksctl/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main sets the log level from DEBUG_TASKSCTL, exits on interrupt and runs the CLI.
func main() {
	configureLogLevelFromEnv()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, func(msg string) { log.Error().Msg(msg) }, os.Exit)

	cmd.Execute()
}

// configureLogLevelFromEnv enables debug logging to stderr when DEBUG_TASKSCTL is set to
// anything other than "", "0" or "false"; otherwise logging is disabled.
func configureLogLevelFromEnv() {
	switch v := strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG_TASKSCTL"))); v {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt waits for a signal, logs and exits with status 1.
func handleInterrupt(stopChan chan os.Signal, logMsg func(string), exit func(int)) {
	<-stopChan
	logMsg("Interrupt signal received. Exiting...")
	exit(1)
}
