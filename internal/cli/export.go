package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/repo"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [prefix]",
		Short: "Export book files as JSON",
		Long: "Export the latest content of every book file, optionally under a path prefix. " +
			"The output can be fed to import, e.g. to move a book from the database into a checkout.",
		Args: cobra.MaximumNArgs(1),
		Run:  runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}

	s := openSession(true)
	defer s.Close()
	ctx := cmd.Context()

	paths, err := s.lister.List(ctx, s.key, prefix)
	if err != nil {
		exitErr("export", err)
	}
	cs := s.books.Book(s.key)
	files := make([]repo.File, 0, len(paths))
	for _, p := range paths {
		f, err := cs.ReadFile(ctx, p)
		if err != nil {
			exitErr("export "+p, err)
		}
		files = append(files, *f)
	}
	printJSON(files)
}
