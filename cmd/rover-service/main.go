package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"rover-service/internal/comms"
	"rover-service/internal/config"
	"rover-service/internal/core"
	"rover-service/internal/hardware"
	"rover-service/internal/logger"
	"rover-service/internal/powertrain"
	"rover-service/internal/remote"
	"rover-service/internal/sensing"
	"rover-service/internal/telemetry"
	"rover-service/internal/timing"
)

func main() {
	var serviceLogLevel int
	var redisHost string
	var redisPort int
	flag.IntVar(&serviceLogLevel, "log", 3, "Service log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	flag.StringVar(&redisHost, "redis-host", "127.0.0.1", "Redis host")
	flag.IntVar(&redisPort, "redis-port", 6379, "Redis port")
	flag.Parse()

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.LogLevel(serviceLogLevel))
	l.Infof("Starting rover service...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatalf("Failed to load configuration: %v", err)
	}

	clk := clock.New()

	// Hardware layer
	motors := hardware.NewMotorHardware(l)
	if err := motors.Initialize(); err != nil {
		l.Fatalf("Failed to initialize motor hardware: %v", err)
	}
	defer motors.Cleanup()

	servo := hardware.NewSysfsServo(clk, l)
	if err := servo.Initialize(); err != nil {
		l.Fatalf("Failed to initialize servo: %v", err)
	}
	defer servo.Cleanup()

	rangefinder := hardware.NewUltrasonic(clk, l)
	if err := rangefinder.Initialize(); err != nil {
		l.Fatalf("Failed to initialize rangefinder: %v", err)
	}
	defer rangefinder.Cleanup()

	battery := hardware.NewBattery(l)

	// Communications
	serialLink, err := comms.Open(cfg.SerialDevice, cfg.SerialBaud, l)
	if err != nil {
		l.Fatalf("Failed to open serial link: %v", err)
	}
	defer serialLink.Close()

	redisClient := telemetry.NewRedisClient(redisHost, redisPort, l)
	if err := redisClient.Connect(); err != nil {
		l.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	telemetryModule := telemetry.NewModule(serialLink, redisClient, l)

	// Motion and sensing
	sharedTimer := timing.NewSharedTimer(clk)
	drive := powertrain.New(motors, sharedTimer, powertrain.Config{
		ForwardSpeed:    cfg.ForwardSpeed,
		ReverseSpeed:    cfg.ReverseSpeed,
		TurnSpeed:       cfg.TurnSpeed,
		MaxAngularSpeed: cfg.MaxAngularSpeed,
	}, l)
	drive.SetChangeListener(telemetryModule)

	scanner := sensing.New(servo, rangefinder, cfg.FreeDistanceCm, l)

	// Drive controller
	ticker := timing.NewPeriodicTicker(clk)
	system := core.NewRoverSystem(drive, scanner, telemetryModule, battery,
		redisClient, ticker, cfg, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	// Manual command channels
	dispatcher := remote.NewDispatcher(drive, system.InRemote,
		system.RequestModeToggle, cfg.ManualTurnAngle, l)

	irReceiver := hardware.NewIRReceiver(cfg.IrInputDevice, l)
	irReceiver.RegisterKeyCallback(dispatcher.HandleIRCode)
	if err := irReceiver.Initialize(); err != nil {
		l.Fatalf("Failed to initialize IR receiver: %v", err)
	}
	defer irReceiver.Cleanup()

	serialLink.StartReading(dispatcher.HandleTextToken)
	if err := redisClient.StartListening(dispatcher.HandleTextToken); err != nil {
		l.Fatalf("Failed to start Redis command listener: %v", err)
	}

	l.Infof("System started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	system.Shutdown()
	l.Infof("Shutdown complete")
}
