// Package main is the generate-jwt command. It signs one HS256 JWT carrying
// role and iss claims and prints it to stdout.
//
//	generate-jwt [-config path] <jwt_secret> <role> <issuer>
//
// With exactly three arguments all of them are positional, even when the
// secret starts with "-".
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dskow/generate-jwt/internal/config"
	"github.com/dskow/generate-jwt/internal/logging"
	"github.com/dskow/generate-jwt/internal/metrics"
	"github.com/dskow/generate-jwt/internal/token"
)

const usage = "Usage: generate-jwt [-config path] <jwt_secret> <role> <issuer>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, time.Now))
}

func run(args []string, stdout, stderr io.Writer, now func() time.Time) int {
	fs := flag.NewFlagSet("generate-jwt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to optional YAML configuration file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}
	flagArgs, positional := splitArgs(args)
	if err := fs.Parse(flagArgs); err != nil {
		return 1
	}
	if len(positional) != 3 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	logger, closer, err := logging.New(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closer.Close()

	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "message", w)
	}

	secret, role, issuer := positional[0], positional[1], positional[2]

	builder := token.NewBuilder(token.WithClock(now))
	claims := builder.Claims(role, issuer)
	tok, err := builder.Sign(secret, claims)
	if err != nil {
		logger.Error("failed to generate token", "error", err)
		return 1
	}

	logger.Info("token issued",
		"role", role,
		"issuer", issuer,
		"iat", claims.IssuedAt.Unix(),
		"exp", claims.ExpiresAt.Unix(),
	)

	fmt.Fprintln(stdout, tok)

	// The token is already out; a metrics failure only gets logged.
	if cfg.Metrics.IsEnabled() {
		if err := exportMetrics(cfg.Metrics.Textfile, claims); err != nil {
			logger.Warn("metrics export failed", "path", cfg.Metrics.Textfile, "error", err)
		} else {
			logger.Debug("metrics written", "path", cfg.Metrics.Textfile)
		}
	}

	return 0
}

// splitArgs separates leading flags from the three positional arguments.
// Apart from -config, flags are only consumed while more than three
// arguments remain, so a secret that begins with "-" is never mistaken for
// a flag. A "--" ends flag parsing as usual.
func splitArgs(args []string) (flagArgs, positional []string) {
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		arg := rest[0]
		name := strings.TrimLeft(arg, "-")
		isConfig := name == "config" || strings.HasPrefix(name, "config=")
		if len(rest) <= 3 && !isConfig {
			break
		}
		if arg == "--" {
			rest = rest[1:]
			break
		}
		if name == "config" && len(rest) > 1 {
			flagArgs = append(flagArgs, rest[0], rest[1])
			rest = rest[2:]
			continue
		}
		flagArgs = append(flagArgs, arg)
		rest = rest[1:]
	}
	return flagArgs, rest
}

func exportMetrics(path string, claims token.Claims) error {
	rec := metrics.New()
	if err := rec.Observe(claims.Role, claims.IssuedAt.Time, claims.ExpiresAt.Time); err != nil {
		return err
	}
	return rec.WriteTextfile(path)
}
