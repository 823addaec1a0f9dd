package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/guest-inbox/internal/domain"
	"github.com/spec-kit/guest-inbox/internal/rules"
)

func (c *cli) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Import or export automation rules as YAML",
	}
	cmd.AddCommand(c.rulesImportCmd(), c.rulesExportCmd())
	return cmd
}

func (c *cli) rulesImportCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create the rules listed in a YAML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := rules.ParseDocument(f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(c.out, "%d rules parsed\n", len(doc.Rules))
				return doc.Encode(c.out)
			}

			container, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			created, err := container.Rules.Import(cmd.Context(), doc)
			for _, rule := range created {
				fmt.Fprintf(c.out, "created %s %q\n", rule.ID, rule.Name)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the document without storing it")
	return cmd
}

func (c *cli) rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every stored rule as a YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := c.build(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			list, err := container.Rules.List(cmd.Context())
			if err != nil {
				return err
			}
			return documentOf(list).Encode(c.out)
		},
	}
}

func documentOf(list []domain.Rule) *rules.Document {
	doc := &rules.Document{Rules: make([]rules.Definition, 0, len(list))}
	for _, r := range list {
		active := r.Active
		def := rules.Definition{
			Name:       r.Name,
			Priority:   r.Priority,
			Active:     &active,
			Conditions: domain.ConditionRecords(r.Conditions),
			Actions:    domain.ActionRecords(r.Actions),
		}
		if r.Description != nil {
			def.Description = *r.Description
		}
		doc.Rules = append(doc.Rules, def)
	}
	return doc
}
