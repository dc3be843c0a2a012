package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/riskibarqy/fpl-assistant/internal/app"
	"github.com/riskibarqy/fpl-assistant/internal/config"
	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
)

func main() {
	managerID := flag.Int64("manager", 0, "FPL manager id (overrides FPL_MANAGER_ID)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *managerID > 0 {
		cfg.FPLManagerID = *managerID
	}
	if cfg.FPLManagerID <= 0 {
		fmt.Fprintln(os.Stderr, "manager id is required: pass -manager or set FPL_MANAGER_ID")
		os.Exit(1)
	}

	logger := logging.NewConsole(cfg.LogLevel)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		// After the first interrupt cancels in-flight work, restore the
		// default handler so a second interrupt exits immediately.
		<-ctx.Done()
		stop()
	}()

	session, cleanup, err := app.NewChatSession(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build assistant: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	fmt.Printf("FPL assistant ready. provider=%s manager=%d session=%s\n", cfg.AIProvider, cfg.FPLManagerID, session.ID())
	fmt.Println(`Ask about your team, or type "exit" to quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := session.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Printf("assistant> %s\n", reply)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
	}
	fmt.Println("bye")
}
