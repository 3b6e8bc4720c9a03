package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lessonforge/docgen-client/internal/stubserver"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	stepDelay := flag.Duration("step-delay", 500*time.Millisecond, "pause between generation steps")
	totalWeeks := flag.Int("weeks", 16, "default week count when no range is given")
	flag.Parse()

	srv := stubserver.New(stubserver.Options{
		StepDelay:  *stepDelay,
		TotalWeeks: *totalWeeks,
	})

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Document Generation Stub Server                 ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Listen:     http://%-38s║\n", *addr)
	fmt.Printf("║  Step Delay: %-45s║\n", *stepDelay)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if err := srv.Start(*addr); err != nil {
		fmt.Printf("Server stopped: %v\n", err)
		os.Exit(1)
	}
}
