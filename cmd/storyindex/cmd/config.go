package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/storyindex/configs"
	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/output"
	"github.com/Aman-CERP/storyindex/internal/specifier"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
		Long: `Inspect and create storyindex configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/storyindex/config.yaml)
  3. Project config (.storyindex.yaml)
  4. Environment variables (STORYINDEX_*)`,
		Example: `  # Show effective configuration
  storyindex config show

  # Create .storyindex.yaml in the current project
  storyindex config init`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Show effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, args, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force, user bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a configuration file",
		Long: `Create .storyindex.yaml from the built-in template. Common story
directories (src, stories, components, packages) found in the project are
listed under stories.

With --user the machine-level config is created instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user {
				return writeTemplate(cmd, config.GetUserConfigPath(), configs.UserConfigTemplate, force)
			}
			return runConfigInit(cmd, args, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Create the user config instead of the project config")

	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string, jsonOutput bool, source string) error {
	var cfg *config.Config

	switch source {
	case "merged":
		dir, err := projectDir(args)
		if err != nil {
			return err
		}
		cfg, err = config.Load(dir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("invalid source: %s (use: merged, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string, force bool) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}

	var stories []specifier.Raw
	for _, d := range config.DiscoverStoryDirs(dir) {
		stories = append(stories, specifier.Raw{Glob: "./" + d})
	}

	content := configs.ProjectConfigTemplate
	if len(stories) > 0 {
		block, err := yaml.Marshal(map[string][]specifier.Raw{"stories": stories})
		if err != nil {
			return fmt.Errorf("failed to marshal stories: %w", err)
		}
		content = strings.Replace(content, configs.StoriesPlaceholder, string(block), 1)
	}

	if err := writeTemplate(cmd, filepath.Join(dir, config.ProjectFile), content, force); err != nil {
		return err
	}
	if len(stories) == 0 {
		output.New(cmd.OutOrStdout()).Warning("No story directories found; add entries under stories.")
	}
	return nil
}

func writeTemplate(cmd *cobra.Command, path, content string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	output.New(cmd.OutOrStdout()).Successf("Created %s", path)
	return nil
}
