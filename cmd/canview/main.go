package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/example/canview/cmd/canview/internal/app"
)

func main() {
	def := app.DefaultConfig()
	var (
		schemaPath     = flag.String("schema", "", "Path to the .dbc or .xlsx schema")
		ebyteHost      = flag.String("ebyte-host", "127.0.0.1", "Hostname or IP address of the EByte CAN-to-Ethernet adapter")
		ebytePort      = flag.Int("ebyte-port", 4001, "TCP port of the EByte CAN-to-Ethernet adapter")
		replayPath     = flag.String("replay", "", "Replay an SLCAN log instead of reading from the adapter")
		replayInterval = flag.Duration("replay-interval", 0, "Delay between replayed frames")
		reconnectDelay = flag.Duration("reconnect-delay", def.ReconnectDelay, "Delay before retrying the connection to the adapter")
		logLevel       = flag.String("log-level", def.LogLevel, "Log level (debug|info|warn|error)")
		logFormat      = flag.String("log-format", def.LogFormat, "Log format (text|json)")
		output         = flag.String("output", def.Output, "Decoded message output (log|json)")
		ids            = flag.String("ids", "", "Comma separated message ids to decode (decimal or 0x hex); empty decodes all")
		mqttBroker     = flag.String("mqtt-broker", "", "MQTT broker host:port; empty disables publishing")
		mqttTopic      = flag.String("mqtt-topic", def.MQTTTopic, "MQTT topic prefix")
		mqttClientID   = flag.String("mqtt-client-id", def.MQTTClientID, "MQTT client identifier")
	)

	flag.Parse()

	if *schemaPath == "" {
		log.Fatalf("-schema is required")
	}
	filter, err := parseIDs(*ids)
	if err != nil {
		log.Fatalf("invalid -ids: %v", err)
	}

	cfg := app.Config{
		SchemaPath:     *schemaPath,
		EByteAddress:   fmt.Sprintf("%s:%d", *ebyteHost, *ebytePort),
		ReconnectDelay: *reconnectDelay,
		ReplayPath:     *replayPath,
		ReplayInterval: *replayInterval,
		LogLevel:       *logLevel,
		LogFormat:      *logFormat,
		Output:         *output,
		Filter:         filter,
		MQTTBroker:     *mqttBroker,
		MQTTTopic:      *mqttTopic,
		MQTTClientID:   *mqttClientID,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	monitor, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialise monitor: %v", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				// the monitor logs the outcome; the old model stays on failure
				_ = monitor.Reload()
			}
		}
	}()

	start := time.Now()
	if err := monitor.Run(ctx); err != nil {
		log.Fatalf("monitor terminated after %s: %v", time.Since(start).Round(time.Second), err)
	}
}

func parseIDs(s string) ([]uint32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []uint32
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 0, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, uint32(id))
	}
	return out, nil
}
