package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"github.com/webitel/im-social-service/config"
	"github.com/webitel/im-social-service/internal/domain/model"
	"github.com/webitel/im-social-service/internal/service"
)

const (
	ServiceName      = "im-social-service"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Social graph and realtime delivery for the game platform",
		Version: fmt.Sprintf("%s (%s, %s@%s) %s", version, commit, branch, commitDate, buildTimestamp),
		Commands: []*cli.Command{
			serverCmd(),
			tokenCmd(),
			monitorCmd(),
		},
	}

	return app.Run(os.Args)
}

var configFileFlag = &cli.StringFlag{
	Name:    "config_file",
	Usage:   "Path to the configuration file",
	EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
}

// loadConfig merges the config file with pflag overrides passed after "--".
func loadConfig(c *cli.Context) (*config.Config, error) {
	fs := config.NewFlagSet()
	if err := fs.Parse(c.Args().Slice()); err != nil {
		return nil, err
	}
	return config.LoadConfig(c.String(configFileFlag.Name), fs)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the HTTP and WebSocket server",
		ArgsUsage: "[-- --http.addr=:8080 --log.level=debug ...]",
		Flags:     []cli.Flag{configFileFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

// tokenCmd mints a bearer token with the configured secret. Intended for local runs.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Issue a bearer token for a user",
		ArgsUsage: "[-- pflag overrides]",
		Flags: []cli.Flag{
			configFileFlag,
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "display_name"},
			&cli.StringFlag{Name: "user_id", Usage: "UUID; generated when empty"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			id := uuid.New()
			if raw := c.String("user_id"); raw != "" {
				if id, err = uuid.Parse(raw); err != nil {
					return fmt.Errorf("user_id: %w", err)
				}
			}

			auth := service.NewAuthService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			token, err := auth.Issue(&model.AuthContact{
				UserID:      id,
				Username:    c.String("username"),
				DisplayName: c.String("display_name"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Watch hub statistics of a running node in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "http://localhost:8080", Usage: "Base URL of the node"},
			&cli.DurationFlag{Name: "interval", Value: time.Second},
			&cli.BoolFlag{Name: "once", Usage: "Print one snapshot as a table and exit"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("once") {
				stats, err := fetchHubStats(c.Context, &http.Client{Timeout: c.Duration("interval")}, c.String("addr"))
				if err != nil {
					return err
				}
				printHubStats(c.App.Writer, stats)
				return nil
			}
			return runMonitor(c.Context, c.String("addr"), c.Duration("interval"))
		},
	}
}
