package main

import (
	"context"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/casebook/cmd/cli/history"
	"github.com/myrjola/casebook/cmd/cli/play"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
	"os/signal"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(play.Group)
	rootCmd.AddCommand(play.Command)
	rootCmd.AddGroup(history.Group)
	rootCmd.AddCommand(history.Command)
}

var rootCmd = &cobra.Command{
	Use:          "casebook",
	Long:         `Detective mysteries set in Egypt, written and graded by a language model.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called above
	}
}

func main() {
	Execute()
}
