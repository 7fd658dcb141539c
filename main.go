package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hostmobility/insight-agent/internal/buildinfo"
	"github.com/hostmobility/insight-agent/internal/supervisor"
)

func main() {
	printVersion := flag.Bool("version", false, "print the build version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(buildinfo.Version())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(buildinfo.ConfDir)
	if err := sup.Run(ctx); err != nil {
		log.Fatalf("insight-agent: %v", err)
	}
}
