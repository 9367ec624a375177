package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/moolen/faultline/internal/config"
)

var policyForce bool

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage the analytics policy file",
}

var policyInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default analytics policy",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPolicyInit,
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check that a policy file loads and validates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.LoadPolicyFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
		return nil
	},
}

func init() {
	policyInitCmd.Flags().BoolVar(&policyForce, "force", false, "Overwrite an existing file")
	policyCmd.AddCommand(policyInitCmd)
	policyCmd.AddCommand(policyValidateCmd)
}

func runPolicyInit(cmd *cobra.Command, args []string) error {
	path := "policy.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if !policyForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	policy := config.DefaultPolicy()
	if err := config.WritePolicyFile(path, &policy); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default policy to %s\n", path)
	return nil
}
