// cmd/iosim/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/tamzrod/modbus-io/internal/simulator"
)

func main() {
	listen := flag.String("listen", "tcp://0.0.0.0:5502", "modbus tcp listen url")
	inputs := flag.Uint("inputs", 0, "digital inputs register")
	outputs := flag.Uint("outputs", 100, "digital outputs register")
	initial := flag.Uint("initial-inputs", 0, "raw value of the inputs register at start")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "iosim",
	})

	if *inputs > 0xFFFF || *outputs > 0xFFFF || *initial > 0xFFFF {
		logger.Fatal("register addresses and values must fit in 16 bits")
	}

	board := simulator.NewBoard(logger)
	board.Set(uint16(*inputs), uint16(*initial))
	board.Set(uint16(*outputs), 0)

	srv, err := simulator.Serve(*listen, board)
	if err != nil {
		logger.Fatal("serve failed", "err", err)
	}
	logger.Info("io board listening", "url", *listen, "inputs", *inputs, "outputs", *outputs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	if err := srv.Stop(); err != nil {
		logger.Error("stop failed", "err", err)
	}
	reads, writes := board.Counts()
	logger.Info("stopped", "reads", reads, "writes", writes)
}
