package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long:  "Run scriva as an MCP server on stdin/stdout. Logs go to stderr.",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	s := openSession(false)
	defer s.Close()

	s.log.Info("serving MCP on stdio",
		zap.String("version", server.Version),
		zap.String("default_book", s.key.String()),
	)
	srv := server.New(server.Deps{
		Books:       s.books,
		Engine:      s.engine(),
		DefaultBook: s.key,
		Log:         s.log,
	})
	if err := server.ServeStdio(srv); err != nil {
		exitErr("serve", err)
	}
}
