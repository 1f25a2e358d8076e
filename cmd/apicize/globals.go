package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apicize/engine/pkg/persistence"
	"github.com/apicize/engine/pkg/workbook"
)

// newGlobalsCmd groups the scenario management subcommands operating on the
// GLOBAL parameter tier: values every workbook on this machine can select,
// stored outside any single workbook file.
func newGlobalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "globals",
		Short: "Manage GLOBAL-tier scenario variables shared across workbooks",
	}
	cmd.AddCommand(newGlobalsListCmd())
	cmd.AddCommand(newGlobalsSetCmd())
	cmd.AddCommand(newGlobalsGetCmd())
	cmd.AddCommand(newGlobalsDeleteCmd())
	return cmd
}

func newGlobalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List global scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := persistence.LoadGlobals()
			if err != nil {
				return err
			}
			if len(g.Scenarios) == 0 {
				fmt.Println("no global scenarios")
				return nil
			}
			for _, s := range g.Scenarios {
				fmt.Printf("%s (%d variables)\n", s.Name, len(s.Variables))
			}
			return nil
		},
	}
}

func newGlobalsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <scenario> <key>",
		Short: "Print one variable's value from a global scenario",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := persistence.LoadGlobals()
			if err != nil {
				return err
			}
			i := g.FindScenario(args[0])
			if i < 0 {
				return fmt.Errorf("no global scenario named %q", args[0])
			}
			for _, v := range g.Scenarios[i].Variables {
				if v.Name == args[1] {
					fmt.Printf("%v\n", v.Value)
					return nil
				}
			}
			return fmt.Errorf("scenario %q has no variable %q", args[0], args[1])
		},
	}
}

func newGlobalsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <scenario> <key> <value>",
		Short: "Set one variable on a global scenario, creating it if needed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := persistence.LoadGlobals()
			if err != nil {
				return err
			}
			name, key, value := args[0], args[1], args[2]

			var scenario *workbook.Scenario
			if i := g.FindScenario(name); i >= 0 {
				scenario = g.Scenarios[i]
			} else {
				scenario = &workbook.Scenario{Name: name}
			}

			replaced := false
			for i := range scenario.Variables {
				if scenario.Variables[i].Name == key {
					scenario.Variables[i].Value = value
					replaced = true
					break
				}
			}
			if !replaced {
				scenario.Variables = append(scenario.Variables, workbook.ScenarioVar{Name: key, Value: value})
			}

			g.SetScenario(scenario)
			return persistence.SaveGlobals(g)
		},
	}
}

func newGlobalsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scenario>",
		Short: "Delete a global scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := persistence.LoadGlobals()
			if err != nil {
				return err
			}
			if !g.DeleteScenario(args[0]) {
				return fmt.Errorf("no global scenario named %q", args[0])
			}
			return persistence.SaveGlobals(g)
		},
	}
}
