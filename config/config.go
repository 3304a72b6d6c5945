// Package config provides daemon/client configuration, resolved from
// command-line flags, TELEWORKER_* environment variables, and an optional
// config file, in that order of precedence via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Server holds jobrunnerd's resolved configuration.
type Server struct {
	Addr        string
	CAPath      string
	CertPath    string
	KeyPath     string
	CgroupRoot  string
	MetricsAddr string
	RateLimit   float64
	RateBurst   int
}

// Client holds jobrunctl's resolved configuration.
type Client struct {
	Addr     string
	CAPath   string
	CertPath string
	KeyPath  string
}

// newViper builds a viper instance that reads TELEWORKER_* env vars and,
// if set, a --config file, layered under the command's own flags.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("teleworker")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// LoadServer resolves jobrunnerd's configuration from cmd's flags, env, and
// config file.
func LoadServer(cmd *cobra.Command) (Server, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Server{}, err
	}
	return Server{
		Addr:        v.GetString("addr"),
		CAPath:      v.GetString("ca"),
		CertPath:    v.GetString("cert"),
		KeyPath:     v.GetString("key"),
		CgroupRoot:  v.GetString("cgroup-root"),
		MetricsAddr: v.GetString("metrics-addr"),
		RateLimit:   v.GetFloat64("rate-limit"),
		RateBurst:   v.GetInt("rate-burst"),
	}, nil
}

// LoadClient resolves jobrunctl's configuration from cmd's flags, env, and
// config file.
func LoadClient(cmd *cobra.Command) (Client, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Client{}, err
	}
	return Client{
		Addr:     v.GetString("addr"),
		CAPath:   v.GetString("ca"),
		CertPath: v.GetString("cert"),
		KeyPath:  v.GetString("key"),
	}, nil
}
