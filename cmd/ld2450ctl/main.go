// Command ld2450ctl configures an HLK-LD2450 radar sensor attached to a
// serial port.
//
// Usage:
//
//	ld2450ctl -port /dev/ttyUSB0 <command> [args]
//
// Commands:
//
//	info                     print firmware version and MAC address
//	tracking [single|multi]  query or set the tracking mode
//	baud <rate>              set the serial baud rate (takes effect after restart)
//	bluetooth <on|off>       enable or disable the Bluetooth radio
//	region                   print the region filter configuration
//	region-clear             disable region filtering
//	restart                  reboot the module
//	factory-reset            restore factory defaults
//	monitor                  stream raw telemetry frames as hex
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	ld2450 "github.com/NieRVoid/ld2450-driver"
	"github.com/NieRVoid/ld2450-driver/internal/monitoring"
	"github.com/NieRVoid/ld2450-driver/internal/serialmux"
)

var (
	portPath   = flag.String("port", "/dev/ttyUSB0", "Serial port the sensor is attached to")
	configPath = flag.String("config", "", "Optional TOML file with serial port options")
	timeout    = flag.Duration("timeout", 3*time.Second, "Per-transaction timeout")
	verbose    = flag.Bool("v", false, "Log driver diagnostics")
)

func main() {
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logger.Debug().Msgf(format, v...)
	})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	popts := serialmux.PortOptions{}
	if *configPath != "" {
		loaded, err := loadPortOptions(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
		popts = loaded
	}

	session, err := ld2450.Open(*portPath, popts, ld2450.Options{ConfigTimeout: *timeout})
	if err != nil {
		logger.Fatal().Err(err).Str("port", *portPath).Msg("open sensor")
	}
	defer session.Close()

	if err := run(session, logger, flag.Args()); err != nil {
		logger.Fatal().Err(err).Msg(flag.Arg(0))
	}
}

func run(session *ld2450.Session, logger zerolog.Logger, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "info":
		version, err := session.FirmwareVersion()
		if err != nil {
			return fmt.Errorf("firmware version: %w", err)
		}
		mac, err := session.MACAddress()
		if err != nil {
			return fmt.Errorf("mac address: %w", err)
		}
		fmt.Printf("firmware: %s\nmac:      %s\n", version, mac)
		return nil

	case "tracking":
		if len(rest) == 0 {
			mode, err := session.TrackingMode()
			if err != nil {
				return err
			}
			fmt.Println(mode)
			return nil
		}
		var mode ld2450.TrackingMode
		switch rest[0] {
		case "single":
			mode = ld2450.SingleTarget
		case "multi":
			mode = ld2450.MultiTarget
		default:
			return fmt.Errorf("unknown tracking mode %q (want single or multi)", rest[0])
		}
		if err := session.SetTrackingMode(mode); err != nil {
			return err
		}
		logger.Info().Stringer("mode", mode).Msg("tracking mode set")
		return nil

	case "baud":
		if len(rest) == 0 {
			return fmt.Errorf("baud requires a rate argument")
		}
		rate, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid baud rate %q", rest[0])
		}
		index, ok := baudIndex(rate)
		if !ok {
			return fmt.Errorf("unsupported baud rate %d", rate)
		}
		if err := session.SetBaudRate(index); err != nil {
			return err
		}
		logger.Info().Int("baud", rate).Msg("baud rate set; restart the module to apply")
		return nil

	case "bluetooth":
		if len(rest) == 0 || (rest[0] != "on" && rest[0] != "off") {
			return fmt.Errorf("bluetooth requires on or off")
		}
		if err := session.SetBluetooth(rest[0] == "on"); err != nil {
			return err
		}
		logger.Info().Str("bluetooth", rest[0]).Msg("bluetooth updated")
		return nil

	case "region":
		filter, err := session.RegionFilter()
		if err != nil {
			return err
		}
		fmt.Printf("filter: %s\n", filter.Type)
		for i, r := range filter.Regions {
			if r.IsZero() {
				fmt.Printf("region %d: not configured\n", i+1)
			} else {
				fmt.Printf("region %d: %s\n", i+1, r)
			}
		}
		return nil

	case "region-clear":
		if err := session.SetRegionFilter(ld2450.RegionFilter{Type: ld2450.FilterDisabled}); err != nil {
			return err
		}
		logger.Info().Msg("region filtering disabled")
		return nil

	case "restart":
		if err := session.Restart(); err != nil {
			return err
		}
		logger.Info().Msg("module restarted")
		return nil

	case "factory-reset":
		if err := session.RestoreFactorySettings(); err != nil {
			return err
		}
		logger.Info().Msg("factory settings restored; restart the module to apply")
		return nil

	case "monitor":
		return monitorFrames(session, logger)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// baudIndex maps a bits-per-second value onto the sensor's baud table.
func baudIndex(rate int) (ld2450.BaudRateIndex, bool) {
	for index := ld2450.Baud9600; index <= ld2450.Baud460800; index++ {
		if index.BaudRate() == rate {
			return index, true
		}
	}
	return 0, false
}

func monitorFrames(session *ld2450.Session, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, frames := session.Subscribe()
	defer session.Unsubscribe(id)

	errc := make(chan error, 1)
	go func() {
		errc <- session.Monitor(ctx)
	}()

	logger.Info().Msg("monitoring telemetry; interrupt to stop")
	for {
		select {
		case frameBytes, ok := <-frames:
			if !ok {
				return nil
			}
			fmt.Println(hex.EncodeToString(frameBytes))
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}
