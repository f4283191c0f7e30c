package cmd

import (
	"encoding/json"
	"fmt"
	"github.com/crytic/symheap/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print the version of symheap, the scenario format it runs, the commit and time it was built from and the Go
version used to compile it.`,
	Args: cobra.NoArgs,
	RunE: cmdRunVersion,
}

func init() {
	versionCmd.Flags().Bool("json", false, "print the build information as JSON")
	rootCmd.Version = version.GetInfo().Short()
	rootCmd.AddCommand(versionCmd)
}

// cmdRunVersion prints the build information, as text or JSON.
func cmdRunVersion(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	info := version.GetInfo()
	if !asJSON {
		fmt.Fprint(cmd.OutOrStdout(), info.String())
		return nil
	}

	b, err := json.MarshalIndent(info, "", "\t")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
