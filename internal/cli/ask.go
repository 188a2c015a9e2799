package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidekit/aide/internal/store"
)

func newAskCmd() *cobra.Command {
	var sessionID string
	var showStats bool
	var retries int

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send a single prompt and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAgent(cfg, log, retries)
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
				switch {
				case err == nil:
					if err := a.LoadSession(snap); err != nil {
						return err
					}
				case errors.Is(err, store.ErrNotFound):
					// first use of this session id
				default:
					return err
				}
			}

			res, err := a.ProcessMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Content)

			if sessionID != "" {
				if err := st.Save(a.SaveSession(sessionID)); err != nil {
					return err
				}
			}

			if showStats {
				m := a.Metrics().Snapshot()
				fmt.Fprintf(cmd.ErrOrStderr(), "tokens=%d avg_ms=%.0f success=%.0f%%\n",
					m.TotalTokens, m.AverageResponseMs, m.SuccessRate)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "load and save conversation state under this session id")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print usage stats to stderr")
	cmd.Flags().IntVar(&retries, "retries", 0, "retry transient endpoint errors up to this many times")
	return cmd
}
