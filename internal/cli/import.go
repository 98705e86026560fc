package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/scriva/internal/repo"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import book files from JSON",
		Long:  "Import book files from JSON on stdin, in the format produced by export. Existing files are overwritten.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var files []repo.File
	if err := json.Unmarshal(data, &files); err != nil {
		exitErr("parse json", err)
	}

	s := openSession(true)
	defer s.Close()

	imported, err := importFiles(cmd.Context(), s.books.Book(s.key), files)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}

// importFiles overwrites each file with the imported content, skipping
// files whose content is already current.
func importFiles(ctx context.Context, cs repo.ContentStore, files []repo.File) (int, error) {
	n := 0
	for _, f := range files {
		token := ""
		cur, err := cs.ReadFile(ctx, f.Path)
		switch {
		case err == nil:
			if cur.Content == f.Content {
				continue
			}
			token = cur.Token
		case !errors.Is(err, repo.ErrNotFound):
			return n, err
		}
		if _, err := cs.WriteFile(ctx, f.Path, f.Content, token); err != nil {
			return n, fmt.Errorf("%s: %w", f.Path, err)
		}
		n++
	}
	return n, nil
}
