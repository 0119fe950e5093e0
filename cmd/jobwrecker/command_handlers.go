package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sourceplane/jobwrecker/internal/schema"
)

var handlersLong bool

var handlersCmd = &cobra.Command{
	Use:     "handlers [component]",
	Aliases: []string{"handler"},
	Short:   "List conversion components and their handlers",
	Long:    "List every component with its lookup order and failure policy. Use 'jobwrecker handlers <component>' to see its handler keys.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listHandlers(args)
	},
}

func registerHandlersCommand(root *cobra.Command) {
	root.AddCommand(handlersCmd)

	handlersCmd.Flags().BoolVarP(&handlersLong, "long", "l", false, "Show where each handler comes from")
}

func listHandlers(args []string) error {
	v, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	reg, err := buildRegistry(v, cfg.Extensions)
	if err != nil {
		return err
	}

	names := reg.Components()
	if len(args) == 1 {
		if _, ok := reg.Component(args[0]); !ok {
			return fmt.Errorf("unknown component %q", args[0])
		}
		names = []string{args[0]}
	}

	fmt.Printf("Components: %d\n", len(names))
	for _, name := range names {
		spec, _ := reg.Component(name)
		keys := reg.Keys(name)
		fmt.Printf("  - %s: %d handlers, lookup=%s, on failure=%s\n", name, len(keys), spec.Lookup, spec.Escalation)
		if len(args) == 0 && !handlersLong {
			continue
		}
		for _, key := range keys {
			if handlersLong {
				fmt.Printf("      %s (%s)\n", key, reg.Source(name, key))
			} else {
				fmt.Printf("      %s\n", key)
			}
		}
	}

	if len(args) == 1 {
		return nil
	}

	kinds := reg.ProjectKinds()
	tags := make([]string, 0, len(kinds))
	for tag := range kinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Printf("\nProject kinds: %d\n", len(tags))
	for _, tag := range tags {
		if handlersLong {
			fmt.Printf("  - %s → %s (%s)\n", tag, kinds[tag], reg.KindSource(tag))
		} else {
			fmt.Printf("  - %s → %s\n", tag, kinds[tag])
		}
	}
	return nil
}
