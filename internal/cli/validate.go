package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check every post for parseable front matter with title, date and excerpt",
		Run:   runValidate,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	})
}

func runValidate(cmd *cobra.Command, args []string) {
	repo, _, err := openRepo(cmd.Context())
	if err != nil {
		exitErr("open content", err)
	}
	checked, problems, err := repo.Check(cmd.Context())
	if err != nil {
		exitErr("validate", err)
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(map[string]any{
			"checked":  checked,
			"problems": problems,
		}, "", "  ")
		fmt.Println(string(b))
	} else {
		for _, p := range problems {
			fmt.Printf("%s: %s\n", p.File, p.Reason)
		}
		fmt.Printf("%d files checked, %d with problems\n", checked, len(problems))
	}
	if len(problems) > 0 {
		os.Exit(1)
	}
}
