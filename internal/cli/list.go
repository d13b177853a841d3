package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"backupmgr/internal/app"
)

var (
	listBefore string
	listAfter  string
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <backup>",
		Short: "List the archives of a backup",
		Long: `List the archives of a backup grouped per backend, oldest first.
Each archive is printed with its position in the backend's listing,
which restore accepts as an ordinal specifier. The optional --before
and --after flags narrow the listing by archive creation time.`,
		Args: cobra.ExactArgs(1),
		RunE: runList,
	}

	cmd.Flags().StringVar(&listBefore, "before", "", "only archives created before this time")
	cmd.Flags().StringVar(&listAfter, "after", "", "only archives created after this time")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	_, runner, _, err := setup()
	if err != nil {
		return err
	}

	before, err := parseTimeFlag(listBefore)
	if err != nil {
		return err
	}
	after, err := parseTimeFlag(listAfter)
	if err != nil {
		return err
	}

	listings, err := runner.ListArchives(cmd.Context(), args[0], app.ArchiveFilter{
		Before: before,
		After:  after,
	})
	if err != nil {
		return err
	}

	if len(listings) == 0 {
		fmt.Println("no archives")
		return nil
	}

	for _, listing := range listings {
		fmt.Printf("%s:\n", listing.BackendName)
		for _, entry := range listing.Archives {
			fmt.Printf("%4d  %s  %s\n",
				entry.Position, entry.Archive.HumanTime(time.Local), entry.Archive.Fullname)
		}
	}
	return nil
}
