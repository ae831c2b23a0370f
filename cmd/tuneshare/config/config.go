package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/SpatiumPortae/tuneshare/internal/session"
	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	CONFIGS_DIR_NAME          = ".config"
	TUNESHARE_CONFIG_DIR_NAME = "tuneshare"
	CONFIG_FILE_NAME          = "config"
	CONFIG_FILE_EXT           = "yml"

	StyleRich = "rich"
	StyleRaw  = "raw"
)

type Config struct {
	Proxy                string `mapstructure:"proxy"`
	Coordinator          string `mapstructure:"coordinator"`
	PeerPortMin          int    `mapstructure:"peer_port_min"`
	PeerPortMax          int    `mapstructure:"peer_port_max"`
	HeartbeatInterval    string `mapstructure:"heartbeat_interval"`
	DownloadDir          string `mapstructure:"download_dir"`
	PromptOverwriteFiles bool   `mapstructure:"prompt_overwrite_files"`
	FallbackPolicy       string `mapstructure:"fallback_policy"`
	StreamProgress       bool   `mapstructure:"stream_progress"`
	Verbose              bool   `mapstructure:"verbose"`
	TuiStyle             string `mapstructure:"tui_style"`
	HubPort              int    `mapstructure:"hub_port"`
	HubSharedDir         string `mapstructure:"hub_shared_dir"`
}

func GetDefault() Config {
	defaults := session.DefaultConfig()
	return Config{
		Proxy:                defaults.ProxyURL,
		Coordinator:          defaults.CoordinatorAddr,
		PeerPortMin:          defaults.PortMin,
		PeerPortMax:          defaults.PortMax,
		HeartbeatInterval:    defaults.HeartbeatInterval.String(),
		DownloadDir:          defaults.DownloadDir,
		PromptOverwriteFiles: true,
		FallbackPolicy:       string(defaults.Fallback),
		StreamProgress:       defaults.StreamProgress,
		Verbose:              false,
		TuiStyle:             StyleRich,
		HubPort:              5001,
		HubSharedDir:         "shared_music",
	}
}

func (config Config) Map() map[string]any {
	m := map[string]any{}
	for _, field := range structs.Fields(config) {
		key := field.Tag("mapstructure")
		value := field.Value()
		m[key] = value
	}
	return m
}

// Yaml renders the config with its keys in lexical order.
func (config Config) Yaml() []byte {
	m := config.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(fmt.Sprintf("%s: %v", k, m[k]))
		builder.WriteRune('\n')
	}
	return []byte(builder.String())
}

func IsDefault(key string) bool {
	defaults := GetDefault().Map()
	return viper.Get(key) == defaults[key]
}

// Session builds the session config from the values held by viper.
func Session() (*session.Config, error) {
	interval, err := time.ParseDuration(viper.GetString("heartbeat_interval"))
	if err != nil {
		return nil, fmt.Errorf("parsing heartbeat interval: %w", err)
	}
	fallback, err := session.ParseFallbackPolicy(viper.GetString("fallback_policy"))
	if err != nil {
		return nil, err
	}
	return &session.Config{
		CoordinatorAddr:   viper.GetString("coordinator"),
		ProxyURL:          viper.GetString("proxy"),
		PortMin:           viper.GetInt("peer_port_min"),
		PortMax:           viper.GetInt("peer_port_max"),
		HeartbeatInterval: interval,
		DownloadDir:       viper.GetString("download_dir"),
		Fallback:          fallback,
		StreamProgress:    viper.GetBool("stream_progress"),
	}, nil
}

// Init initializes the viper config.
// `config.yml` is created in $HOME/.config/tuneshare if not already existing.
// NOTE: The precedence levels of viper are the following: flags -> config file -> defaults.
func Init() error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("resolving home dir: %w", err)
	}

	configPath := filepath.Join(home, CONFIGS_DIR_NAME, TUNESHARE_CONFIG_DIR_NAME)
	viper.AddConfigPath(configPath)
	viper.SetConfigName(CONFIG_FILE_NAME)
	viper.SetConfigType(CONFIG_FILE_EXT)

	if err := viper.ReadInConfig(); err != nil {
		// Create config file if not found.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err := os.MkdirAll(configPath, os.ModePerm)
			if err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			configFile, err := os.Create(filepath.Join(configPath, fmt.Sprintf("%s.%s", CONFIG_FILE_NAME, CONFIG_FILE_EXT)))
			if err != nil {
				return fmt.Errorf("could not create config file: %w", err)
			}
			defer configFile.Close()

			_, err = configFile.Write(GetDefault().Yaml())
			if err != nil {
				return fmt.Errorf("could not write defaults to config file: %w", err)
			}
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("could not read created config file: %w", err)
			}
		} else {
			return fmt.Errorf("could not read config file: %w", err)
		}
	}
	for k, v := range GetDefault().Map() {
		viper.SetDefault(k, v)
	}
	return nil
}
