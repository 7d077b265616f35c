// seqhostd runs a simulated sequencing engine behind the rpc bridge so
// proxies can be developed and tested without audio hardware.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/rubato-audio/seqrpc/config"
	"github.com/rubato-audio/seqrpc/providers"
	"github.com/rubato-audio/seqrpc/src/engine"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := config.HostConfigFromEnv()
	sim := engine.NewSimulator()
	defer sim.Close()

	host := providers.NewHost(cfg, sim, logger)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info().Msg("shutting down")
		if err := host.Stop(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := host.Start(); err != nil {
		logger.Fatal().Err(err).Msg("host failed")
	}
}
