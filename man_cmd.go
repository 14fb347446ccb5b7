package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	// Manpages don't need configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		manPage, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}
		manPage = manPage.WithSection("Environment",
			"AZURE_SPEECH_KEY and AZURE_SPEECH_REGION configure the Azure engine.\n"+
				"SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY configure the Supabase backends.\n"+
				"GOOGLE_APPLICATION_CREDENTIALS points at a Drive service account.\n"+
				"LESSONVOX_CONFIG_HOME overrides the configuration directory.")
		fmt.Println(manPage.Build(roff.NewDocument()))
		return nil
	},
}
