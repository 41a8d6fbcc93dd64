// Command cachectl inspects and maintains a tenantcache capacity file and
// simple tier from the shell.
//
//	cachectl status
//	cachectl set --namespace 42 --ttl 10m ledger-page-1 '[{"id":1}]'
//	cachectl get --namespace 42 ledger-page-1
//	cachectl clear --namespace 42
//	cachectl sweep
//
// Settings come from the environment, after loading a .env file if present.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := execute(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
