package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/openclaw/agent-console-go/internal/util"
)

// Prints a random hex secret for AUTH_SECRET or TELEGRAM_WEBHOOK_SECRET.
func main() {
	bytes := 32
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 16 {
			fmt.Fprintf(os.Stderr, "Usage: go run scripts/gen-secret.go [bytes>=16]\n")
			os.Exit(1)
		}
		bytes = n
	}

	secret, err := util.GenerateToken(bytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(secret)
}
