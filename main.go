package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/emu-ps2/ee2/api"
	"github.com/emu-ps2/ee2/config"
	"github.com/emu-ps2/ee2/monitor"
	"github.com/emu-ps2/ee2/service"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion   = flag.Bool("version", false, "Show version information")
		showHelp      = flag.Bool("help", false, "Show help information")
		apiServer     = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort       = flag.Int("port", 8089, "API server port (used with -api-server)")
		monitorMode   = flag.Bool("monitor", false, "Start the TUI register/cache monitor")
		maxCycles     = flag.Uint64("max-cycles", 0, "Step budget in cycles (default: from config)")
		entryPoint    = flag.String("entry", "", "Entry point address, hex or decimal (default: from config)")
		memSize       = flag.Uint("mem-size", 0, "Guest physical memory size in bytes (default: from config)")
		cacheCapacity = flag.Int("cache-capacity", 0, "Code-cache entry capacity (default: from config)")
		verboseMode   = flag.Bool("verbose", false, "Verbose output")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("ee2 %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	budget := cfg.Core.StepBudget
	if *maxCycles != 0 {
		budget = *maxCycles
	}
	size := cfg.Core.PhysicalMemSize
	if *memSize != 0 {
		size = uint32(*memSize) // #nosec G115 -- CLI flag, not guest-controlled
	}
	capacity := cfg.Core.CacheCapacity
	if *cacheCapacity != 0 {
		capacity = *cacheCapacity
	}
	entry := cfg.Core.DefaultEntryPoint
	if *entryPoint != "" {
		entry = *entryPoint
	}
	entryAddr, err := parseAddress(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid entry point %q: %v\n", entry, err)
		os.Exit(1)
	}

	svc := service.NewEngineService(size, capacity)

	if flag.NArg() > 0 {
		imagePath := flag.Arg(0)
		if *verboseMode {
			fmt.Printf("Loading raw instruction image: %s\n", imagePath)
		}
		if err := loadImage(svc, imagePath, entryAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
			os.Exit(1)
		}
	} else {
		svc.SetPC(entryAddr)
	}

	if *monitorMode && cfg.Monitor.Enabled {
		m := monitor.New(svc, cfg.Monitor.HistorySize)
		if err := m.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Monitor error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *verboseMode {
		fmt.Printf("Stepping %d cycles from entry %#010x\n", budget, entryAddr)
	}
	if err := svc.Step(budget); err != nil {
		fmt.Fprintf(os.Stderr, "Execution stopped: %v\n", err)
		os.Exit(1)
	}

	snap := svc.Registers()
	fmt.Printf("Halted at PC=%#010x after %d cycles\n", snap.PC, snap.Cycles)
}

// loadImage reads a flat binary of little-endian 32-bit instruction words
// and writes it into guest main memory starting at base. There is no ELF
// loader here: spec.md §1 scopes "ELF loader proper" out as an external
// collaborator, so the CLI only ever consumes a pre-linked raw image.
func loadImage(svc *service.EngineService, path string, base uint32) error {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified CLI argument
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	for i := 0; i+4 <= len(data); i += 4 {
		word := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
		svc.WriteWord(base+uint32(i), word) // #nosec G115 -- image size bounded by available memory
	}
	svc.SetPC(base)
	return nil
}

func parseAddress(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func runAPIServer(port int) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Printf(`ee2 - Emotion Engine core emulator

Usage:
  ee2 [flags] [image-file]

Flags:
  -version            Show version information
  -help                Show this help
  -api-server          Start HTTP API server mode
  -port N              API server port (default: 8089)
  -monitor             Start the TUI register/cache monitor
  -max-cycles N        Step budget in cycles (default: from config)
  -entry ADDR          Entry point address, hex or decimal (default: from config)
  -mem-size N          Guest physical memory size in bytes (default: from config)
  -cache-capacity N    Code-cache entry capacity (default: from config)
  -verbose             Verbose output

Examples:
  # Start the HTTP remote-control API
  ee2 -api-server -port 8089

  # Step a raw instruction image headlessly
  ee2 -max-cycles 500000 program.bin

  # Step a raw instruction image under the TUI monitor
  ee2 -monitor program.bin

Image files are flat little-endian 32-bit instruction words loaded at the
entry point; there is no ELF loader in this core (spec.md scopes it out as
an external collaborator).
`)
}
