package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/cache"
	"github.com/smallbiznis/hireledger/internal/clock"
	"github.com/smallbiznis/hireledger/internal/config"
	"github.com/smallbiznis/hireledger/internal/credential"
	"github.com/smallbiznis/hireledger/internal/lock"
	"github.com/smallbiznis/hireledger/internal/metricsexport"
	"github.com/smallbiznis/hireledger/internal/migration"
	"github.com/smallbiznis/hireledger/internal/observability"
	"github.com/smallbiznis/hireledger/internal/server"
	"github.com/smallbiznis/hireledger/pkg/db"
	"github.com/smallbiznis/hireledger/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if err := hashToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisclient.Module,
		clock.Module,
		cache.Module,
		lock.Module,
		migration.Module,

		// Domains and HTTP
		server.Module,
		metricsexport.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

// hashToken prints the INTERNAL_TOKEN_HASH value for a token given as the
// first argument or on stdin.
func hashToken(args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token: %w", err)
		}
		token = line
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("usage: hireledger hash-token <token>")
	}

	encoded, err := credential.Hash(token)
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}
