// panambi-light is a small demonstration of the module runtime: it drives a
// simulated light over MQTT, accepting on/off and brightness commands and
// reporting state on fixed topics.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"gopkg.in/yaml.v3"

	mqtt "github.com/panambi/panambi-mqtt"
)

const defaultConfigPath = "panambi-light.yaml"

// config is the YAML configuration for the demo. Durations are plain
// seconds so the file needs no unit parsing.
type config struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	KeepAlive    uint16 `yaml:"keep_alive_seconds"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	TickInterval int    `yaml:"tick_interval_seconds"`
	LogLevel     string `yaml:"log_level"`
}

func loadConfig(path string) (config, error) {
	cfg := config{
		Broker:       "localhost:1883",
		ClientID:     "panambi-light",
		KeepAlive:    30,
		ReadTimeout:  5,
		TickInterval: 30,
		LogLevel:     "info",
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigPath {
			return cfg, nil // defaults are a runnable configuration
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Fixed topics, known at compile time like the rest of the light's storage.
const (
	topicCmd             = "panambi/light/cmd"
	topicState           = "panambi/light/state"
	topicBrightnessCmd   = "panambi/light/brightness/cmd"
	topicBrightnessState = "panambi/light/brightness/state"
)

// lightModule simulates a dimmable light. Commands flip its state and flag
// an immediate publish so the new state reaches the broker in the same
// processing cycle; otherwise the state is re-announced every tick.
type lightModule struct {
	mqtt.NoopModule
	on         bool
	brightness uint8
	dirty      bool
	interval   time.Duration
	log        *slog.Logger
}

func (l *lightModule) Register(topics mqtt.TopicCollector) {
	topics.Add(topicCmd)
	topics.Add(topicBrightnessCmd)
}

func (l *lightModule) OnStart(out mqtt.Outbox) {
	l.publishState(out)
}

func (l *lightModule) OnMessage(msg *mqtt.Publish) {
	switch {
	case msg.TopicIs(topicCmd):
		on := string(msg.Payload) == "ON"
		if on != l.on {
			l.on = on
			l.dirty = true
			l.log.Info("light switched", "on", l.on)
		}
	case msg.TopicIs(topicBrightnessCmd):
		v, err := strconv.ParseUint(string(msg.Payload), 10, 8)
		if err != nil {
			l.log.Warn("bad brightness payload", "payload", string(msg.Payload))
			return
		}
		l.brightness = uint8(v)
		l.dirty = true
		l.log.Info("brightness set", "brightness", l.brightness)
	}
}

func (l *lightModule) OnTick(out mqtt.Outbox) time.Duration {
	l.publishState(out)
	l.dirty = false
	return l.interval
}

func (l *lightModule) NeedsImmediatePublish() bool { return l.dirty }

func (l *lightModule) publishState(out mqtt.Outbox) {
	state := "OFF"
	if l.on {
		state = "ON"
	}
	out.Publish(topicState, []byte(state), mqtt.QoS1)
	out.Publish(topicBrightnessState, []byte(strconv.Itoa(int(l.brightness))), mqtt.QoS0)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	log.Info("starting panambi-light", "broker", cfg.Broker, "client_id", cfg.ClientID)

	conn, err := net.Dial("tcp", cfg.Broker)
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Second
	client := mqtt.NewClient(mqtt.NewNetTransport(conn, readTimeout), mqtt.ClientConfig{
		ClientID:     cfg.ClientID,
		KeepAlive:    cfg.KeepAlive,
		CleanSession: true,
		ReadTimeout:  readTimeout,
	})

	light := &lightModule{
		brightness: 128,
		interval:   time.Duration(cfg.TickInterval) * time.Second,
		log:        log,
	}

	rt := mqtt.NewRuntime(client, mqtt.Modules{light}, mqtt.RuntimeConfig{
		SubscribeQoS: mqtt.QoS1,
		Logger:       log,
	})

	log.Info("runtime starting")
	if err := rt.Run(ctx); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	log.Info("clean shutdown")
	return nil
}
