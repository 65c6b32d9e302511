package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sdb/internal/chat"
	"github.com/roach88/sdb/internal/meta"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the chat's contexts and behaviors",
		Long: `Print every context type with its observable states, and every
behavior type with its slots, handlers, and teardown operations.

Examples:
  sdb describe
  sdb describe --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			d, err := chat.Describe()
			if err != nil {
				return out.Fail(ExitFailure, CodeRuntime, "failed to build registry", err)
			}
			if out.json() {
				return out.Encode(Response{Status: "ok", Data: d})
			}
			writeDescription(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func writeDescription(w io.Writer, d meta.Description) {
	fmt.Fprintln(w, "Contexts:")
	for _, c := range d.Contexts {
		fmt.Fprintf(w, "  %s [%s]\n", c.Name, strings.Join(c.States, ", "))
	}

	fmt.Fprintln(w, "\nBehaviors:")
	for _, b := range d.Behaviors {
		name := b.Name
		if b.Eager {
			name += " (eager)"
		}
		fmt.Fprintf(w, "  %s\n", name)
		for _, s := range b.Slots {
			fmt.Fprintf(w, "    %s %s: %s\n", s.Fulfillment, s.Name, s.Context)
		}
		for _, h := range b.Handlers {
			target := h.Slot
			if h.State != "" {
				target += "." + h.State
			}
			fmt.Fprintf(w, "    on %s (%d)\n", target, h.Count)
		}
		if b.Teardown > 0 {
			fmt.Fprintf(w, "    teardown (%d)\n", b.Teardown)
		}
	}
}
