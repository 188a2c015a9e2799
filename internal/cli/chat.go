package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidekit/aide/internal/agent"
	"github.com/aidekit/aide/internal/store"
)

func newChatCmd() *cobra.Command {
	var sessionID string
	var retries int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: "Start an interactive chat session. Slash commands:\n" +
			"  /save <id>   save the conversation\n" +
			"  /load <id>   load a saved conversation\n" +
			"  /sessions    list saved conversations\n" +
			"  /tasks       show the model's working plan\n" +
			"  /stats       show usage stats\n" +
			"  /clear       clear the conversation\n" +
			"  /quit        exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// Tool activity is surfaced as it happens so long batches
			// don't look like a hang.
			progress := agent.ObserverFunc(func(e agent.Event) {
				switch e.Kind {
				case agent.EventToolCallStart:
					fmt.Fprintf(out, "  [tool] %s\n", e.Data["name"])
				case agent.EventHistoryPruned:
					fmt.Fprintf(out, "  [context trimmed: %v older messages dropped]\n", e.Data["removed_messages"])
				}
			})

			a, err := buildAgent(cfg, log, retries, agent.WithObserver(progress))
			if err != nil {
				return err
			}

			st, err := buildStore(cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if sessionID != "" {
				snap, err := st.Load(sessionID)
				if err == nil {
					if err := a.LoadSession(snap); err != nil {
						return err
					}
					fmt.Fprintf(out, "resumed session %s (%d messages)\n", sessionID, len(snap.Messages))
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			return runChatLoop(cmd, a, st, sessionID)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume this session and save to it on exit")
	cmd.Flags().IntVar(&retries, "retries", 0, "retry transient endpoint errors up to this many times")
	return cmd
}

func runChatLoop(cmd *cobra.Command, a *agent.Agent, st store.SessionStore, sessionID string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleSlash(out, a, st, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}

		res, err := a.ProcessMessage(cmd.Context(), line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, res.Content)
	}

	if sessionID != "" {
		if err := st.Save(a.SaveSession(sessionID)); err != nil {
			return err
		}
		fmt.Fprintf(out, "saved session %s\n", sessionID)
	}
	return nil
}

func handleSlash(out io.Writer, a *agent.Agent, st store.SessionStore, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/clear":
		a.Conversation().Clear()
		a.Tasks().Clear()
		fmt.Fprintln(out, "conversation cleared")

	case "/save":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /save <id>")
		}
		if err := st.Save(a.SaveSession(fields[1])); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "saved session %s\n", fields[1])

	case "/load":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /load <id>")
		}
		snap, err := st.Load(fields[1])
		if err != nil {
			return false, err
		}
		if err := a.LoadSession(snap); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "loaded session %s (%d messages)\n", snap.ID, len(snap.Messages))

	case "/sessions":
		infos, err := st.List()
		if err != nil {
			return false, err
		}
		if len(infos) == 0 {
			fmt.Fprintln(out, "no saved sessions")
			break
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%s  %s  %d messages\n",
				info.ID, info.Timestamp.Format("2006-01-02 15:04"), info.Messages)
		}

	case "/tasks":
		tasks := a.Tasks().List()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "no tasks")
			break
		}
		for _, t := range tasks {
			mark := " "
			switch t.Status {
			case agent.TaskInProgress:
				mark = ">"
			case agent.TaskCompleted:
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s  %s\n", mark, t.ID, t.Title)
		}

	case "/stats":
		m := a.Metrics().Snapshot()
		fmt.Fprintf(out, "requests: %d\ntokens: %d\navg response: %.0f ms\nsuccess rate: %.1f%%\n",
			m.TotalRequests, m.TotalTokens, m.AverageResponseMs, m.SuccessRate)
		fmt.Fprintf(out, "context estimate: ~%d tokens\n", a.Conversation().EstimateTokens())

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}
