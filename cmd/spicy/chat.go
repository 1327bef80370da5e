package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/spicy/kernel"
	"github.com/tailored-agentic-units/spicy/stream"
)

var chatFile string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask about a schematic, or start an interactive chat",
	Long: `With a message, sends one question and prints the streamed answer. Without
one, starts an interactive chat. Lines beginning with / are commands:

  /file <name>    switch to another schematic
  /sessions       list saved chats
  /switch <id>    open a saved chat
  /new            start a new chat
  /delete <id>    delete a saved chat
  /quit           leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		printer := newStreamPrinter(out)
		unsubscribe := k.Subscribe(printer.update)
		defer unsubscribe()

		if chatFile != "" {
			k.SelectDocument(ctx, chatFile)
		}

		if len(args) > 0 {
			return ask(ctx, k, printer, strings.Join(args, " "))
		}
		return repl(ctx, k, printer, cmd.InOrStdin(), out)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatFile, "file", "f", "", "Schematic to chat about")
}

func ask(ctx context.Context, k *kernel.Kernel, printer *streamPrinter, text string) error {
	req, err := k.Send(ctx, text)
	if err != nil {
		return err
	}
	printer.track(req.Document, req.ID)

	outcome, err := req.Wait(ctx)
	if err != nil {
		return err
	}
	printer.update(req.Document, k.State())

	if outcome.Result.Status == stream.StatusFailed {
		return fmt.Errorf("request failed: %w", outcome.Result.Err)
	}
	return nil
}

func repl(ctx context.Context, k *kernel.Kernel, printer *streamPrinter, in io.Reader, out io.Writer) error {
	prompt := func() {
		doc := k.Document()
		if doc == "" {
			doc = "no file"
		}
		fmt.Fprint(out, userStyle.Render(doc+" > "))
	}

	scanner := bufio.NewScanner(in)
	prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
		case strings.HasPrefix(line, "/"):
			quit, err := command(ctx, k, out, line)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
		default:
			if err := ask(ctx, k, printer, line); err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		prompt()
	}
	return scanner.Err()
}

func command(ctx context.Context, k *kernel.Kernel, out io.Writer, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/file":
		state := k.SelectDocument(ctx, arg)
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d messages, %d saved chats", len(state.Messages), len(state.Sessions))))
	case "/sessions":
		return false, renderSessions(out, k.Document(), k.State().Sessions)
	case "/switch":
		if err := k.SwitchSession(ctx, arg); err != nil {
			return false, err
		}
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d messages", len(k.State().Messages))))
	case "/new":
		k.NewSession(ctx)
	case "/delete":
		if err := k.DeleteSession(ctx, arg); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}
