// Command sdstored is the sdstore server: it accepts proc-file and
// status requests over a Unix datagram socket, admits tasks against
// configured per-filter concurrency limits, and runs each task's
// filter pipeline as a chain of external processes.
//
// CLI shape and signal-handling skeleton follow the teacher's
// cmd/server/main.go (SIGINT/SIGTERM installs a handler that stops the
// server cleanly); flag/command registration follows
// ethereum-go-ethereum's cmd/geth use of urfave/cli/v2.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"sdstore/internal/coordinator"
	"sdstore/internal/limits"
	"sdstore/internal/listener"
	"sdstore/internal/logging"
	"sdstore/internal/messenger"
	"sdstore/internal/sockdir"
	"sdstore/internal/task"
	"sdstore/internal/worker"
)

func main() {
	app := &cli.App{
		Name:      "sdstored",
		Usage:     "run the sdstore filter-processing server",
		ArgsUsage: "<filters-config-file> <filter-binaries-dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sock-dir",
				Usage: "directory for the server and client Unix datagram sockets (default: ./tmp)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, or error",
				Value: "info",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "sdstored:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit(fmt.Sprintf("expected %s", c.Command.ArgsUsage), 1)
	}
	configPath := c.Args().Get(0)
	binDir := c.Args().Get(1)

	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	log := logging.New(os.Stderr, "sdstored", level)

	configFile, err := os.Open(configPath)
	if err != nil {
		return cli.Exit(fmt.Errorf("open filters config: %w", err), 1)
	}
	defer configFile.Close()

	filterLimits, err := limits.Parse(bufio.NewReader(configFile))
	if err != nil {
		return cli.Exit(fmt.Errorf("parse filters config: %w", err), 1)
	}
	log.Info("loaded filter limits", logging.Fields{"path": configPath})

	sockDir, err := sockdir.Dir(c.String("sock-dir"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	serverConn, err := sockdir.BindServer(sockDir)
	if err != nil {
		return cli.Exit(fmt.Errorf("bind server socket: %w", err), 1)
	}
	defer serverConn.Close()
	log.Info("bound server socket", logging.Fields{"sock_dir": sockDir})

	msgr := messenger.New(log.WithComponent("messenger"), serverConn, sockDir)

	runPipeline := func(ctx context.Context, t task.ClientTask) worker.Result {
		return worker.Run(ctx, t, binDir)
	}
	coord := coordinator.New(log.WithComponent("coordinator"), filterLimits, runPipeline, msgr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("received signal, shutting down", logging.Fields{"signal": sig})
		cancel()
		serverConn.Close()
	}()

	l := listener.New(log.WithComponent("listener"), serverConn, coord)
	if err := l.Run(); err != nil {
		return cli.Exit(fmt.Errorf("listener: %w", err), 1)
	}
	return nil
}
