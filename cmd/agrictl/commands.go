package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"agrimarket/internal/directory/models"
	"agrimarket/internal/discovery"
	"agrimarket/internal/geo"
)

type filterFlags struct {
	query    string
	all      bool
	category string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "q", "q", "", "free-text search")
	cmd.Flags().BoolVar(&f.all, "all", false, "include unverified records")
}

func (f *filterFlags) state() models.FilterState {
	state := models.DefaultFilterState()
	state.Search = f.query
	state.VerifiedOnly = !f.all
	if f.category != "" {
		state.Category = f.category
	}
	return state
}

func newKindsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the configured discovery pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			kinds := e.kinds.All()
			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, kinds)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tTITLE\tGATED\tSEARCH FIELDS")
			for _, k := range kinds {
				fields := append(append([]string{}, k.SearchFields...), k.ListSearchFields...)
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", k.Kind, k.Title, k.Gated, strings.Join(fields, ","))
			}
			return tw.Flush()
		},
	}
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "discover <kind>",
		Short: "Fetch and filter one discovery page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			snap, err := e.service.Discover(cmd.Context(), models.Kind(args[0]), f.state(), opts.token, e.device)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&f.category, "category", "", "category value, or \"all\"")
	return cmd
}

func newOverviewCmd(opts *rootOptions) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Load every public page onto one map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			ov, err := e.service.Overview(cmd.Context(), f.state(), opts.token, e.device, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, ov)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tTOTAL\tMATCHED\tMARKERS\tERROR")
			for _, s := range ov.Sections {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Kind.Kind, s.Total, s.Matched, len(s.Markers), s.Err)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			printViewport(out, ov.Viewport)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func printSnapshot(w io.Writer, snap discovery.Snapshot) error {
	fmt.Fprintf(w, "%s: %d of %d records (%s)\n", snap.Kind, len(snap.View), len(snap.Records), snap.State)
	if snap.Err != "" {
		fmt.Fprintf(w, "error: %s\n", snap.Err)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tVERIFIED\tPOSITION\tTAGS")
	byID := make(map[string]models.Marker, len(snap.Markers))
	for _, m := range snap.Markers {
		byID[m.ID] = m
	}
	for _, r := range snap.View {
		pos := "-"
		tags := ""
		if m, ok := byID[r.ID]; ok {
			pos = fmt.Sprintf("%.4f,%.4f", m.Position.Lat(), m.Position.Lng())
			tags = strings.Join(m.Tags, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", r.ID, r.Name, r.Verified, pos, tags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printViewport(w, snap.Viewport)
	return nil
}

func printViewport(w io.Writer, vp geo.Viewport) {
	if vp.Empty {
		fmt.Fprintf(w, "map: %s (center %.4f,%.4f zoom %d)\n", vp.Message, vp.Center.Lat(), vp.Center.Lng(), vp.Zoom)
		return
	}
	fmt.Fprintf(w, "map: center %.4f,%.4f zoom %d\n", vp.Center.Lat(), vp.Center.Lng(), vp.Zoom)
}
