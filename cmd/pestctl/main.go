package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/pkg/client"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	registryURL string
	cfgFile     string
	principal   string
	apiKey      string
	token       string
	jsonOut     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pestctl",
	Short: "PestLedger compliance registry CLI",
	Long: `pestctl is the command-line interface for the PestLedger registry.

It registers facilities and technicians, manages technician status and
certification renewals, and checks the audit ledger.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.pestctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("pestctl")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = "http://localhost:8080"
		}
		if principal == "" {
			principal = viper.GetString("principal")
		}
		if apiKey == "" {
			apiKey = viper.GetString("api_key")
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.pestctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&principal, "principal", "", "caller principal")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "caller API key")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (overrides --principal/--api-key)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(heightCmd)
	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(facilityCmd)
	rootCmd.AddCommand(technicianCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(eventsCmd)
}

// newClient builds a registry client from the global flags.
func newClient() (*client.Client, error) {
	var opts []client.Option
	switch {
	case token != "":
		opts = append(opts, client.WithBearerToken(token))
	case principal != "":
		opts = append(opts, client.WithCredentials(principal, apiKey))
	}
	return client.New(registryURL, opts...)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// printFields prints label/value pairs as an aligned table, or v as JSON
// when --json is set.
func printFields(v any, rows [][2]string) error {
	if jsonOut {
		return printJSON(v)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s:\t%s\n", r[0], r[1])
	}
	return w.Flush()
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pestctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pestctl %s\n", version)
	},
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange --principal/--api-key for a caller token and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if principal == "" {
			return fmt.Errorf("--principal is required")
		}
		c, err := client.New(registryURL, client.WithCredentials(principal, apiKey))
		if err != nil {
			return err
		}
		tok, err := c.FetchToken(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

// ── height ───────────────────────────────────────────────────────────────────

var heightCmd = &cobra.Command{
	Use:   "height",
	Short: "Print the registry's current logical height",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		h, err := c.Height(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

// ── hash-key ─────────────────────────────────────────────────────────────────

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <api-key>",
	Short: "Print the bcrypt hash of an API key for auth.principals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := identity.HashKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

// ── events ───────────────────────────────────────────────────────────────────

var (
	eventsRedisAddr string
	eventsChannel   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect registry lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream lifecycle events from the registry's Redis channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := eventsRedisAddr
		if addr == "" {
			addr = viper.GetString("redis_addr")
		}
		if addr == "" {
			return fmt.Errorf("--redis is required")
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close() //nolint:errcheck

		sub := events.NewRedisPublisher(rdb, eventsChannel, zap.NewNop())
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ch, err := sub.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Channel(), err)
		}
		fmt.Fprintf(os.Stderr, "watching %s on %s\n", sub.Channel(), addr)
		for e := range ch {
			if jsonOut {
				if err := printJSON(e); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", e.Height, e.Type, e.Subject, e.Actor, formatPayload(e.Payload))
		}
		return nil
	},
}

func formatPayload(p map[string]string) string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func init() {
	eventsWatchCmd.Flags().StringVar(&eventsRedisAddr, "redis", "", "Redis address (host:port)")
	eventsWatchCmd.Flags().StringVar(&eventsChannel, "channel", events.DefaultChannel, "pub/sub channel")
	eventsCmd.AddCommand(eventsWatchCmd)
}
