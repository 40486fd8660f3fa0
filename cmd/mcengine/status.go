package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gstoney/mcengine"
	"github.com/gstoney/mcengine/packet"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var (
		protocol int32
		timeout  time.Duration
		legacy   bool
	)

	cmd := &cobra.Command{
		Use:   "status [host:port]",
		Short: "Query a server's list status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "localhost:25565"
			if len(args) == 1 {
				addr = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if legacy {
				fields, err := mcengine.QueryLegacyStatus(ctx, addr)
				if err != nil {
					return err
				}
				printTable([][]string{
					{"Protocol", fields[0]},
					{"Version", fields[1]},
					{"Description", fields[2]},
					{"Players", fields[3] + "/" + fields[4]},
				})
				return nil
			}

			doc, latency, err := mcengine.QueryStatus(ctx, addr, protocol)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Version", doc.Version.Name},
				{"Protocol", strconv.Itoa(int(doc.Version.Protocol))},
				{"Description", doc.Description.Text},
				{"Players", fmt.Sprintf("%d/%d", doc.Players.Online, doc.Players.Max)},
				{"Latency", latency.Round(time.Millisecond).String()},
			}
			for _, p := range doc.Players.Sample {
				rows = append(rows, []string{"  " + p.Name, p.ID})
			}
			printTable(rows)
			return nil
		},
	}

	cmd.Flags().Int32Var(&protocol, "protocol", packet.Protocol1_15_2, "protocol version to announce")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "dial and exchange timeout")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "use the pre-netty 0xFE ping")
	return cmd
}

func printTable(rows [][]string) {
	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Field", "Value"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}
