// Package cmd wires the gateway-mesh binary's cobra commands: config
// loading, logging setup, concentrator/forwarder startup and the
// top-level signal-driven run loop.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agsys/gateway-mesh/internal/backend"
	"github.com/agsys/gateway-mesh/internal/config"
	"github.com/agsys/gateway-mesh/internal/forwarder"
	"github.com/agsys/gateway-mesh/internal/gw"
	"github.com/agsys/gateway-mesh/internal/logging"
	"github.com/agsys/gateway-mesh/internal/relay"
)

var configPaths []string

var rootCmd = &cobra.Command{
	Use:   "gateway-mesh",
	Short: "LoRa gateway-mesh relay",
	Long:  "Extends LoRaWAN coverage by relaying uplink/downlink traffic over a dedicated mesh radio, between Relay Gateways and a single Border Gateway.",
	RunE:  runEngine,
}

var configfileCmd = &cobra.Command{
	Use:   "configfile",
	Short: "Print an example configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(exampleConfig)
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configPaths, "config", "c", nil, "configuration file path (may be repeated; files are merged in order)")
	rootCmd.AddCommand(configfileCmd)
}

// Execute runs the gateway-mesh CLI. It returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runEngine(cmd *cobra.Command, args []string) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("at least one -c/--config path is required")
	}

	conf, err := config.Load(configPaths)
	if err != nil {
		return err
	}

	if err := logging.Setup(conf.Logging.Level, conf.Logging.LogToSyslog, "gateway-mesh"); err != nil {
		return err
	}

	relayCfg, err := conf.ToRelayConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	device, err := backend.Dial(ctx, "device", conf.Backend.Concentratord.EventURL, conf.Backend.Concentratord.CommandURL)
	if err != nil {
		return fmt.Errorf("dial device concentrator: %w", err)
	}
	defer device.Close()

	mesh, err := backend.Dial(ctx, "mesh", conf.Backend.MeshConcentratord.EventURL, conf.Backend.MeshConcentratord.CommandURL)
	if err != nil {
		return fmt.Errorf("dial mesh concentrator: %w", err)
	}
	defer mesh.Close()

	engine, err := relay.New(relayCfg, device, mesh, nil)
	if err != nil {
		return fmt.Errorf("build relay engine: %w", err)
	}

	if relayCfg.BorderGateway {
		fwd := forwarder.New(conf.Mesh.ProxyAPI.EventBind, conf.Mesh.ProxyAPI.CommandBind, engine)
		engine.SetForwarder(fwd)
		if err := fwd.Start(ctx); err != nil {
			return fmt.Errorf("start forwarder: %w", err)
		}
		defer fwd.Close()
	}

	go consumeEvents(ctx, device.Events(), engine.HandleConcentratorEvent)
	go consumeEvents(ctx, mesh.Events(), engine.HandleMeshConcentratorEvent)

	if !relayCfg.BorderGateway {
		go engine.RunHeartbeat(ctx, conf.Events.HeartbeatInterval)
		for _, set := range conf.Events.Sets {
			go engine.RunEventSet(ctx, relay.EventSet{Events: set.Events, Interval: set.Interval})
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logrus.WithFields(logrus.Fields{
		"border_gateway": relayCfg.BorderGateway,
	}).Info("gateway-mesh started")

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("received signal, shutting down")

	return nil
}

func consumeEvents(ctx context.Context, events <-chan *gw.Event, handle func(context.Context, *gw.Event) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := handle(ctx, event); err != nil {
				logrus.WithError(err).Error("failed to handle concentrator event")
			}
		}
	}
}
