package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"forecast-ingest/edi/internal/auth"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/constants"
)

// token_gen mints a bearer token for the ops API using API_JWT_SIGNING_KEY
func main() {
	var (
		subject = flag.String("subject", "", "Who the token is for, e.g. an operator or a scheduler")
		role    = flag.String("role", constants.RoleViewer.String(), "Role: operator or viewer")
		ttl     = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "Error: -subject is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.IssueToken([]byte(cfg.API.JWTSigningKey), *subject, constants.OpsRole(*role), *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
