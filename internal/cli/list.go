package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List book files",
		Long:  "List the files stored for the book, optionally under a path prefix such as .scriva/ or chapters/.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runList,
	}

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	s := openSession(true)
	defer s.Close()

	paths, err := s.lister.List(cmd.Context(), s.key, prefix)
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, p := range paths {
			fmt.Println(p)
		}
		return
	}
	printJSON(paths)
}
