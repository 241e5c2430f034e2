package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/configs"
	"github.com/studydeck/studyrag/internal/output"
)

const configFileName = ".studyrag.yaml"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Init writes a commented .studyrag.yaml to the current directory
with every setting at its default. Credentials are never written;
set OPENAI_API_KEY in the environment.

Examples:
  studyrag init
  studyrag init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(configFileName); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configFileName)
	}

	if err := os.WriteFile(configFileName, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configFileName, err)
	}

	out.Successf("wrote %s", configFileName)
	out.Info("edit it to change defaults; environment variables win over the file")
	return nil
}
