package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put <path> [content]",
		Short: "Write a book file",
		Long: "Write a file of the book, such as chapters/ch1.md or .scriva/memory/book.md. " +
			"Content can be a positional arg or piped via stdin. Pass --token with the token from " +
			"`get` to overwrite an existing file.",
		Args: cobra.MinimumNArgs(1),
		Run:  runPut,
	}

	cmd.Flags().String("token", "", "Conflict token of the version being replaced")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	token, _ := cmd.Flags().GetString("token")
	path := args[0]

	content, err := readContent(args[1:], os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s := openSession(true)
	defer s.Close()

	newToken, err := s.store().Content().WriteFile(cmd.Context(), path, content, token)
	if err != nil {
		exitErr("put", err)
	}
	printJSON(map[string]string{"path": path, "token": newToken})
}
