/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	baseURL        string
	bind           string
	maxMessageSize int64
	port           int
	prefix         string
	profile        bool
	redisAddr      string
	redisDB        int
	redisKey       string
	roomTimeout    time.Duration
	sendBuffer     int
	staticDir      string
	tlsCert        string
	tlsKey         string
	tokenTTL       time.Duration
	verbose        bool
	version        bool

	log *logrus.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sendBuffer < 1 {
		return fmt.Errorf("invalid send buffer (must be at least 1): %d", c.sendBuffer)
	}
	if c.maxMessageSize < 1 {
		return fmt.Errorf("invalid max message size (must be at least 1): %d", c.maxMessageSize)
	}
	if c.roomTimeout < 0 {
		return fmt.Errorf("invalid room timeout (must not be negative): %s", c.roomTimeout)
	}
	if c.tokenTTL < 0 {
		return fmt.Errorf("invalid token ttl (must not be negative): %s", c.tokenTTL)
	}
	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis db (must not be negative): %d", c.redisDB)
	}
	if c.baseURL != "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base url (must include scheme and host): %s", c.baseURL)
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// logger returns the configured logger, creating it on first use.
func (c *Config) logger() *logrus.Logger {
	if c.log == nil {
		c.log = newLogger(c)
	}
	return c.log
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DECKHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "deckhand",
		Short:         "Room-based relay pairing a game host screen with player phones.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.baseURL, "base-url", "", "public address players open to join, used for join links and qr codes (env: DECKHAND_BASE_URL)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DECKHAND_BIND)")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 64*1024, "largest inbound websocket message accepted, in bytes (env: DECKHAND_MAX_MESSAGE_SIZE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DECKHAND_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: DECKHAND_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: DECKHAND_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the room activity journal, disabled if empty (env: DECKHAND_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database index for the room activity journal (env: DECKHAND_REDIS_DB)")
	fs.StringVar(&cfg.redisKey, "redis-key", "deckhand_rooms", "redis list the room activity journal is pushed to (env: DECKHAND_REDIS_KEY)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time without host activity before a room is closed, 0 to keep rooms forever (env: DECKHAND_ROOM_TIMEOUT)")
	fs.IntVar(&cfg.sendBuffer, "send-buffer", 64, "frames queued per connection before it is dropped as too slow (env: DECKHAND_SEND_BUFFER)")
	fs.StringVar(&cfg.staticDir, "static-dir", "", "directory containing the presentation bundle, embedded placeholder if empty (env: DECKHAND_STATIC_DIR)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: DECKHAND_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: DECKHAND_TLS_KEY)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", 0, "lifetime of host tokens, 0 for no expiry (env: DECKHAND_TOKEN_TTL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DECKHAND_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DECKHAND_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("deckhand v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
