// Package main implements the dbproc CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/electwix/dbproc/internal/cli"
	"github.com/electwix/dbproc/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, pipeline.Environment{Writer: pipeline.NewOSWriter()}, args, stdout, stderr)
}

func execute(ctx context.Context, env pipeline.Environment, args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand(env)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "dbproc: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
