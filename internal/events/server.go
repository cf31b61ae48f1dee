package events

import (
	"errors"
	"time"

	"github.com/mark3labs/adreel/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	readyTimeout    = 4 * time.Second
	drainTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// startEmbedded starts an in-process NATS server with no listeners and no storage.
func startEmbedded(log *logger.Logger) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "adreel",
		DontListen: true,
		NoSigs:     true,
		NoLog:      true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		log.Error("Failed to create NATS server: %v", err)
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		log.Error("NATS server failed to start within %s", readyTimeout)
		return nil, errors.New("nats server failed to start within timeout")
	}

	log.Debug("NATS server ready for connections")
	return ns, nil
}

// connectInProcess opens a connection that talks to ns without network ports.
func connectInProcess(ns *server.Server, log *logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect("", nats.InProcessServer(ns), nats.Name("adreel"))
	if err != nil {
		log.Error("Failed to connect to NATS in-process: %v", err)
		return nil, err
	}
	return conn, nil
}

// shutdown drains nc and stops ns, forcing progress when either hangs.
func shutdown(nc *nats.Conn, ns *server.Server, log *logger.Logger) error {
	if nc != nil {
		drainDone := make(chan error, 1)
		go func() {
			drainDone <- nc.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				log.Warn("NATS drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(drainTimeout):
			log.Warn("NATS drain timed out after %s, forcing close", drainTimeout)
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		shutdownDone := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(shutdownDone)
		}()

		select {
		case <-shutdownDone:
			log.Debug("NATS server shut down cleanly")
		case <-time.After(shutdownTimeout):
			log.Error("NATS server shutdown timed out after %s", shutdownTimeout)
			return errors.New("NATS server shutdown timed out")
		}
	}

	return nil
}
