package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sourceplane/jobwrecker/internal/render"
)

var watchInitial bool

func registerWatchCommand(root *cobra.Command) {
	watchCmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Convert XML configurations below a directory again whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			converter, err := newConverter()
			if err != nil {
				return err
			}

			if watchInitial {
				fmt.Printf("□ Converting configurations in %s...\n", args[0])
				outcomes, err := converter.ConvertDir(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to convert directory: %w", err)
				}
				if err := report(outcomes); err != nil {
					fmt.Fprintf(os.Stderr, "%v\n", err)
				}
			}

			fmt.Printf("□ Watching %s (Ctrl+C to stop)...\n", args[0])
			var mu sync.Mutex
			err = converter.Watch(ctx, args[0], func(o render.Outcome) {
				mu.Lock()
				defer mu.Unlock()
				switch {
				case o.Err != nil:
					fmt.Printf("✗ %s: %v\n", o.Name, o.Err)
				case len(o.Escapes) > 0:
					fmt.Printf("✓ %s → %s (%d kept as raw XML)\n", o.Name, o.Path, len(o.Escapes))
				default:
					fmt.Printf("✓ %s → %s\n", o.Name, o.Path)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to watch %s: %w", args[0], err)
			}
			fmt.Println("✓ Stopped watching")
			return nil
		},
	}

	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Convert everything once before watching")

	root.AddCommand(watchCmd)
}
