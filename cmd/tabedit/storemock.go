package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabedit/internal/backend"
	"pkt.systems/tabedit/internal/persist"
	"pkt.systems/tabedit/internal/protocol"
)

// storeDirEnv points the store mock at its data directory.
const storeDirEnv = "TABEDIT_STORE_DIR"

type storeMockOptions struct {
	dataDir string
	delay   time.Duration
	fail    string
}

func newStoreMockCmd() *cobra.Command {
	var opts storeMockOptions
	var delayMS int
	var serve bool
	cmd := &cobra.Command{
		Use:           "store-mock [--serve] [--data-dir <dir>] [--delay-ms <n>] [--fail <message>]",
		Short:         "Reference store service answering save, search and load commands",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.delay = time.Duration(delayMS) * time.Millisecond
			dir, err := resolveStoreDir(opts.dataDir)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
				return err
			}
			opts.dataDir = dir
			if serve {
				return runStoreMockServer(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return runStoreMockOnce(opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "record directory (default $"+storeDirEnv+" or ~/.tabedit/store)")
	cmd.Flags().IntVar(&delayMS, "delay-ms", 0, "sleep before answering each command")
	cmd.Flags().StringVar(&opts.fail, "fail", "", "answer every command with this error")
	cmd.Flags().BoolVar(&serve, strings.TrimPrefix(backend.WorkerFlag, "--"), false, "serve framed commands until stdin closes")
	return cmd
}

func resolveStoreDir(flagValue string) (string, error) {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		return dir, nil
	}
	if dir := strings.TrimSpace(os.Getenv(storeDirEnv)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabedit", "store"), nil
}

// runStoreMockOnce answers the single command on stdin. The trailing newline
// that terminates the command is not part of it.
func runStoreMockOnce(opts storeMockOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	input, err := io.ReadAll(stdin)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return err
	}
	if opts.delay > 0 {
		time.Sleep(opts.delay)
	}
	if opts.fail != "" {
		_, _ = fmt.Fprintln(stderr, opts.fail)
		return errors.New(opts.fail)
	}
	store, err := persist.NewStore(opts.dataDir)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return err
	}
	out, err := persist.NewHandler(store).Handle(strings.TrimSuffix(string(input), "\n"))
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return err
	}
	_, err = fmt.Fprint(stdout, out)
	return err
}

// runStoreMockServer answers framed commands until stdin closes. Stderr is
// drained by the client, so logging is safe here.
func runStoreMockServer(ctx context.Context, opts storeMockOptions, stdin io.Reader, stdout io.Writer) error {
	log := pslog.Ctx(ctx).With("data_dir", opts.dataDir)
	store, err := persist.NewStoreWithLogger(opts.dataDir, log)
	if err != nil {
		return err
	}
	handler := persist.NewHandler(store)
	reader := bufio.NewReader(stdin)
	writer := bufio.NewWriter(stdout)
	log.Info("store mock serving")
	for {
		payload, err := protocol.ReadFrame(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info("store mock stdin closed")
				return nil
			}
			return err
		}
		if opts.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.delay):
			}
		}
		reply := protocol.Reply{OK: true}
		if opts.fail != "" {
			reply = protocol.Reply{Body: opts.fail}
		} else if body, err := handler.Handle(string(payload)); err != nil {
			log.Debug("store mock command failed", "err", err)
			reply = protocol.Reply{Body: err.Error()}
		} else {
			reply.Body = body
		}
		if err := protocol.WriteFrame(writer, protocol.EncodeReply(reply)); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
}
