package app

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/vcadmin"
)

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader(headers),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(len(headers), tw.AlignLeft)),
	)
	return table
}

func renderRows(table *tablewriter.Table, rows [][]string) error {
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// renderContracts prints tenant contracts with the payload strategy each one gets.
func renderContracts(w io.Writer, list []vcadmin.Contract, registry *contracts.Registry) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No credential contracts found.")
		return err
	}

	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			c.ID,
			c.DisplayName,
			c.AuthorityID,
			c.Status,
			string(registry.Lookup(c.ID).Kind),
		})
	}
	return renderRows(newTable(w, []string{"ID", "Name", "Authority", "Status", "Strategy"}), rows)
}

// renderStrategies prints the contract registry.
func renderStrategies(w io.Writer, registry *contracts.Registry) error {
	strategies := registry.Strategies()
	if len(strategies) == 0 {
		_, err := fmt.Fprintln(w, "The contract registry is empty.")
		return err
	}

	rows := make([][]string, 0, len(strategies))
	for _, s := range strategies {
		pin := "no"
		if s.AllowPIN {
			pin = "yes"
		}
		claims := make([]string, 0, len(s.Claims))
		for k := range s.Claims {
			claims = append(claims, k)
		}
		rows = append(rows, []string{s.ID, s.Name, string(s.Kind), pin, joinSorted(claims)})
	}
	return renderRows(newTable(w, []string{"ID", "Name", "Kind", "PIN", "Claims"}), rows)
}

// renderSettings prints the configured/missing report.
func renderSettings(w io.Writer, settings []config.Setting) error {
	rows := make([][]string, 0, len(settings))
	for _, s := range settings {
		rows = append(rows, []string{s.Name, s.Status()})
	}
	return renderRows(newTable(w, []string{"Setting", "Status"}), rows)
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	slices.Sort(values)
	return strings.Join(values, ", ")
}
