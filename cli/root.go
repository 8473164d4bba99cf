// Package cli provides the brein command-line client.
//
// Every subcommand loads the SDK configuration (flags, BREIN_ environment
// variables, brein.yaml, .env), builds one request, dispatches it through an
// engine and prints the result as YAML or JSON.
//
// Example Usage:
//
//	brein --api-key $KEY activity --type login --email diane@example.com
//	brein lookup --dimension temperature --dimension weather -o json
//	brein temporaldata --location "San Francisco" --timezone America/Los_Angeles
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"brein.evalgo.org/common"
	"brein.evalgo.org/config"
	"brein.evalgo.org/engine"
	"brein.evalgo.org/provider"
	"brein.evalgo.org/request"
	"brein.evalgo.org/result"
	"brein.evalgo.org/session"
	"brein.evalgo.org/store"
)

// EnvPrefix is the environment variable prefix, e.g. BREIN_API_KEY.
const EnvPrefix = "BREIN"

// EnvConfigFile names the config file when --config is not given.
const EnvConfigFile = "BREIN_CONFIG"

// options holds the persistent flags shared by all subcommands.
type options struct {
	cfgFile string
	output  string
	wait    time.Duration
}

// flagBindings maps persistent flags onto configuration keys.
var flagBindings = map[string]string{
	"api-key":         "api_key",
	"secret":          "secret",
	"base-url":        "base_url",
	"category":        "default_category",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
	"store-driver":    "store.driver",
	"store-path":      "store.path",
	"redis-url":       "store.redis_url",
	"socket-timeout":  "socket_timeout",
	"connect-timeout": "connection_timeout",
}

// RootCmd is the command executed by the brein binary.
var RootCmd = NewRootCmd()

// Execute runs RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "brein",
		Short: "send activities, lookups, temporal data and recommendation requests",
		Long: `brein dispatches signed requests to the Breinify API.

Configuration is read from command-line flags, BREIN_ environment variables,
a .env file and brein.yaml (searched in ., ./configs, ~/.brein and /etc/brein)
with that precedence.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $BREIN_CONFIG, ./brein.yaml or ~/.brein/brein.yaml)")
	flags.StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml or json")
	flags.DurationVar(&opts.wait, "wait", 30*time.Second, "maximum time to wait for the response")
	flags.String("api-key", "", "API key")
	flags.String("secret", "", "secret used to sign requests")
	flags.String("base-url", "", "API base URL")
	flags.String("category", "", "default activity category")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("store-driver", "", "user defaults store: bolt, redis or empty for none")
	flags.String("store-path", "", "bbolt database file")
	flags.String("redis-url", "", "redis connection URL")
	flags.Duration("socket-timeout", 0, "response timeout")
	flags.Duration("connect-timeout", 0, "connection timeout")
	flags.Bool("host-network", false, "attach this host's network interface to every request")
	flags.Float64Slice("device-location", nil, "attach a device location to every request as latitude,longitude")

	root.AddCommand(
		newActivityCmd(opts),
		newLookupCmd(opts),
		newTemporalDataCmd(opts),
		newRecommendationCmd(opts),
		newIdentifyCmd(opts),
		newSecretCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// loadConfig reads the configuration with the command's flags layered on top.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader(EnvPrefix)
	loader.SetConfigDefaults()

	for flag, key := range flagBindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := loader.Viper().BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	path := o.cfgFile
	if path == "" {
		path = common.GetEnv(EnvConfigFile, "")
	}
	cfgFile, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	cfg := &config.Config{}
	if err := loader.Load(cfgFile, cfg); err != nil {
		return nil, err
	}
	if cfg.Store.Path, err = homedir.Expand(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("failed to expand store path: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *options) logger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	logCfg := common.DefaultLoggerConfig()
	logCfg.Level = common.LogLevel(cfg.Logging.Level)
	logCfg.Format = cfg.Logging.Format
	logCfg.Output = cmd.ErrOrStderr()
	return common.NewLogger(logCfg)
}

// client bundles what a request command needs.
type client struct {
	cfg     *config.Config
	engine  *engine.Engine
	session *session.Manager
	store   store.Store
}

func (r *client) Close() {
	_ = r.engine.Close()
	_ = r.store.Close()
}

// setup loads configuration, opens the user defaults store and starts an engine.
func (o *options) setup(ctx context.Context, cmd *cobra.Command) (*client, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd, cfg)

	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	engineOpts, err := providerOptions(cmd.Flags())
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	eng, err := engine.New(cfg, append(engineOpts, engine.WithLogger(logger))...)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	manager := session.NewManager(s,
		session.WithDispatcher(eng),
		session.WithLogger(common.SDKLogger(logger, "session")),
	)
	if err := manager.Load(ctx); err != nil {
		_ = eng.Close()
		_ = s.Close()
		return nil, err
	}
	manager.Foreground()

	return &client{cfg: cfg, engine: eng, session: manager, store: s}, nil
}

// providerOptions turns the device flags into engine providers.
func providerOptions(flags *pflag.FlagSet) ([]engine.Option, error) {
	var opts []engine.Option
	if hostNetwork, _ := flags.GetBool("host-network"); hostNetwork {
		opts = append(opts, engine.WithNetworkProvider(provider.HostNetwork{}))
	}
	if flags.Changed("device-location") {
		coords, _ := flags.GetFloat64Slice("device-location")
		if len(coords) != 2 {
			return nil, fmt.Errorf("--device-location expects latitude,longitude")
		}
		opts = append(opts, engine.WithLocationProvider(provider.StaticLocation{
			Value: &provider.Location{Latitude: coords[0], Longitude: coords[1]},
		}))
	}
	return opts, nil
}

// context returns a context canceled on SIGINT/SIGTERM or after --wait.
func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if o.wait <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, o.wait)
	return ctx, func() {
		cancel()
		stop()
	}
}

// dispatch sends entity and prints the response. A response is printed even
// when the request failed with a non-2xx status.
func (o *options) dispatch(cmd *cobra.Command, build func(rt *client, user *request.User) (request.Entity, error)) error {
	ctx, cancel := o.context(cmd)
	defer cancel()

	rt, err := o.setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	user, err := userFromFlags(cmd.Flags(), rt.session)
	if err != nil {
		return err
	}
	entity, err := build(rt, user)
	if err != nil {
		return err
	}

	res, err := rt.engine.Do(ctx, entity)
	if res != nil {
		if perr := o.print(cmd, newResponseView(res)); perr != nil {
			return perr
		}
	}
	return err
}

// addUserFlags registers the flags describing the user a request is about.
func addUserFlags(flags *pflag.FlagSet) {
	flags.String("email", "", "user email")
	flags.String("user-id", "", "user id (defaults to the remembered one)")
	flags.String("session-id", "", "session id (defaults to the current session)")
	flags.String("first-name", "", "user first name")
	flags.String("last-name", "", "user last name")
	flags.String("ip", "", "user ip address")
	flags.StringToString("user-field", nil, "additional user fields as key=value")
}

// userFromFlags starts from the remembered user and applies the flags on top.
func userFromFlags(flags *pflag.FlagSet, manager *session.Manager) (*request.User, error) {
	user := manager.User()

	if v, _ := flags.GetString("email"); v != "" {
		user.SetEmail(v)
	}
	if v, _ := flags.GetString("user-id"); v != "" {
		user.SetUserID(v)
	}
	if v, _ := flags.GetString("session-id"); v != "" {
		user.SetSessionID(v)
	}
	if v, _ := flags.GetString("first-name"); v != "" {
		user.SetFirstName(v)
	}
	if v, _ := flags.GetString("last-name"); v != "" {
		user.SetLastName(v)
	}
	if v, _ := flags.GetString("ip"); v != "" {
		user.SetIPAddress(v)
	}
	fields, _ := flags.GetStringToString("user-field")
	for key, value := range fields {
		if err := user.Set(key, value); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// responseView is the printed form of a result.
type responseView struct {
	StatusCode int                    `json:"status_code" yaml:"status_code"`
	Status     string                 `json:"status,omitempty" yaml:"status,omitempty"`
	Message    string                 `json:"message,omitempty" yaml:"message,omitempty"`
	Body       map[string]interface{} `json:"body,omitempty" yaml:"body,omitempty"`
}

func newResponseView(res *result.Result) responseView {
	view := responseView{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Body:       res.Map(),
	}
	if !res.IsSuccess() {
		view.Message = res.Message()
	}
	return view
}
