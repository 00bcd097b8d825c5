package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"linefollower/internal/config"
	"linefollower/internal/console"
)

const usage = `usage: linefollower [-config path] <command>

commands:
  run        follow the line using the stored calibration
  calibrate  sweep the sensors over the line and save their bounds
  status     print the calibration manager state and the stored record
  clear      erase the stored calibration
`

type consoleSink interface {
	io.Writer
	Name() string
	Close() error
}

var openConsoleFn = func(port string, baud int) (consoleSink, error) {
	return console.Open(port, baud)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup completes before
// main exits.
func run(args []string) int {
	fs := flag.NewFlagSet("linefollower", flag.ContinueOnError)
	configPath := fs.String("config", "./linefollower.yaml", "Path to YAML config")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	cmd := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return 1
	}

	var out io.Writer = os.Stdout
	if cfg.Console.Enable {
		con, err := openConsoleFn(cfg.Console.Port, cfg.Console.Baud)
		if err != nil {
			log.Printf("console open failed: %v", err)
			return 1
		}
		defer func() {
			log.SetOutput(os.Stderr)
			if err := con.Close(); err != nil {
				log.Printf("console close: %v", err)
			}
		}()
		log.SetOutput(io.MultiWriter(os.Stderr, con))
		out = io.MultiWriter(os.Stdout, con)
		log.Printf("console port=%s baud=%d", con.Name(), cfg.Console.Baud)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, cmd, cfg, out); err != nil {
		log.Printf("%s failed: %v", cmd, err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cmd string, cfg config.Config, out io.Writer) error {
	switch cmd {
	case "run", "calibrate", "status", "clear":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	r, err := openRobot(cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	switch cmd {
	case "run":
		return runFollow(ctx, r)
	case "calibrate":
		return runCalibrate(ctx, r, out)
	case "status":
		r.mgr.StatusReport(out)
		r.mgr.DisplayStoredCalibration(out)
		return nil
	default:
		return r.mgr.Clear()
	}
}
