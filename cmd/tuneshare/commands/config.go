package commands

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/SpatiumPortae/tuneshare/cmd/tuneshare/config"
	"github.com/alecthomas/chroma/quick"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

func Config() *cobra.Command {
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Output the path of the config file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(viper.ConfigFileUsed())
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "View the configured options",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := viper.ConfigFileUsed()
			contents, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("config file (%s) could not be read: %w", configPath, err)
			}
			if err := quick.Highlight(os.Stdout, string(contents), "yaml", "terminal256", "onedark"); err != nil {
				fmt.Println(string(contents))
			}
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:       "set [key] [value]",
		Short:     "Set a single option",
		Args:      cobra.ExactArgs(2),
		ValidArgs: configKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !slices.Contains(configKeys(), key) {
				return fmt.Errorf("unknown option %q, valid options are: %s", key, strings.Join(configKeys(), ", "))
			}
			viper.Set(key, value)
			if _, err := config.Session(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := viper.WriteConfig(); err != nil {
				return fmt.Errorf("writing config file (%s): %w", viper.ConfigFileUsed(), err)
			}
			return nil
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := viper.ConfigFileUsed()
			// Strip arguments from editor variable, exec.Command looks up the bare executable.
			editor, _, _ := strings.Cut(os.Getenv("EDITOR"), " ")
			if len(editor) == 0 {
				return fmt.Errorf("could not find default editor (is the $EDITOR variable set?), the file (%s) can be opened manually", configPath)
			}
			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("failed to open file (%s) in editor (%s): %w", configPath, editor, err)
			}
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset to the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := viper.ConfigFileUsed()
			if err := os.WriteFile(configPath, config.GetDefault().Yaml(), 0o644); err != nil {
				return fmt.Errorf("config file (%s) could not be written to: %w", configPath, err)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:       "config",
		Short:     "View and configure options",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{pathCmd.Name(), viewCmd.Name(), setCmd.Name(), editCmd.Name(), resetCmd.Name()},
		Run:       func(cmd *cobra.Command, args []string) {},
	}
	configCmd.AddCommand(pathCmd, viewCmd, setCmd, editCmd, resetCmd)
	return configCmd
}

func configKeys() []string {
	var keys []string
	for k := range config.GetDefault().Map() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
