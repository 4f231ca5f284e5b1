// Command apnsgated runs the push gateway daemon: it provisions the
// configured apps, serves the JSON surface and exposes prometheus
// metrics on /metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/takimoto3/apnsgate"
	"github.com/takimoto3/apnsgate/certificate"
	"github.com/takimoto3/apnsgate/config"
	"github.com/takimoto3/apnsgate/rest"
)

var (
	configPath = kingpin.Flag("config", "Path to the YAML configuration file.").Short('c').Default("apnsgate.yaml").String()
	listenAddr = kingpin.Flag("listen", "Listen address, overriding the configuration file.").String()
	debug      = kingpin.Flag("debug", "Enable debug logging.").Bool()
)

func main() {
	kingpin.Version("1.0.0")
	kingpin.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.NewConfigFromFile(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	cfg, err = config.UpdateConfigWithEnvOverrides(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	gateway := apnsgate.New(logger)
	for _, app := range cfg.Apps {
		environment, err := apnsgate.ParseEnvironment(app.Environment)
		if err != nil {
			logger.WithField("app", app.Name).WithError(err).Fatal("invalid environment")
		}
		_, err = gateway.Provision(app.Name, environment,
			certificate.Sniff(app.Certificate), time.Duration(app.TimeoutSeconds)*time.Second)
		if err != nil {
			logger.WithField("app", app.Name).WithError(err).Fatal("failed to provision app")
		}
		logger.WithFields(logrus.Fields{
			"app":         app.Name,
			"environment": app.Environment,
		}).Info("provisioned app")
	}

	api := rest.NewHandler(gateway, logger)
	mux := http.NewServeMux()
	mux.Handle("/apps", api)
	mux.Handle("/apps/", api)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("serving")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	gateway.Close()
	logger.Info("shutdown complete")
}
