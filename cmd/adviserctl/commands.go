package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/buildconfig"
	"github.com/Thommy96/BaRiStA/internal/config"
	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/geo"
	"github.com/Thommy96/BaRiStA/internal/ontology"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/Thommy96/BaRiStA/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	ontologyPath string
	source       string
	table        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "adviserctl",
		Short:        "Inspect and export a dialogue knowledge base",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.ontologyPath, "ontology", config.OntologyPath(), "ontology file (JSON or YAML)")
	root.PersistentFlags().StringVar(&opts.source, "source", config.KBSource(), "SQLite file or postgres:// URL")
	root.PersistentFlags().StringVar(&opts.table, "table", config.KBTable(), "entity table (defaults to the ontology domain)")

	root.AddCommand(
		newVersionCmd(),
		newEntitiesCmd(opts),
		newRouteCmd(opts),
		newExportCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("adviserctl version %s\n", buildconfig.String())
		},
	}
}

func newEntitiesCmd(opts *rootOptions) *cobra.Command {
	var extra []string

	cmd := &cobra.Command{
		Use:   "entities [slot=value ...]",
		Short: "List entities matching slot constraints",
		Long: `Lists the primary key and system-requestable slots of every entity
matching all constraints. Repeat a slot to accept several values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			constraints, err := parseConstraints(args)
			if err != nil {
				return err
			}
			kb, closeKB, err := openKnowledge(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer closeKB()

			rows, err := kb.FindEntities(cmd.Context(), constraints, extra...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringSliceVar(&extra, "extra", nil, "additional slots to include")
	return cmd
}

func newRouteCmd(opts *rootOptions) *cobra.Command {
	var (
		from        string
		mode        string
		geocoderURL string
	)

	cmd := &cobra.Command{
		Use:   "route <entity>",
		Short: "Estimate distance and travel time to an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			geocoder := geo.NewNominatimClient(geocoderURL, config.GeocoderUserAgent(), config.GeocoderRPS(), zap.NewNop())
			kb, closeKB, err := openKnowledge(cmd.Context(), opts, geocoder)
			if err != nil {
				return err
			}
			defer closeKB()

			route, err := kb.DistanceDuration(cmd.Context(), from, args[0], domain.TravelMode(mode))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), route)
		},
	}
	cmd.Flags().StringVar(&from, "from", "university", "start point, an address or a known landmark")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeFoot), `"by foot", "by bike" or "by car"`)
	cmd.Flags().StringVar(&geocoderURL, "geocoder-url", config.GeocoderURL(), "Nominatim base URL")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "export <addresses|opening-hours>",
		Short:     "Export entity name to address or opening hours as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"addresses", "opening-hours"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, closeKB, err := openKnowledge(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer closeKB()

			var artifact any
			switch args[0] {
			case "addresses":
				artifact, err = kb.ExportAddresses(cmd.Context())
			case "opening-hours":
				var hours map[string]domain.OpeningHours
				hours, err = kb.ExportOpeningHours(cmd.Context())
				artifact = openingHoursArtifact(hours)
			default:
				return fmt.Errorf("unknown artifact %q", args[0])
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return printJSON(w, artifact)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

// openingHoursArtifact keeps each entity's day order in the output.
func openingHoursArtifact(hours map[string]domain.OpeningHours) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(hours))
	for name, h := range hours {
		out[name] = json.RawMessage(store.EncodeOpeningHours(h))
	}
	return out
}

func openKnowledge(ctx context.Context, opts *rootOptions, geocoder domain.Geocoder) (*service.KnowledgeService, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	onto, err := ontology.Load(opts.ontologyPath)
	if err != nil {
		return nil, nil, err
	}
	table := opts.table
	if table == "" {
		table = onto.DomainName()
	}

	src, closeSrc, err := store.OpenSource(ctx, opts.source)
	if err != nil {
		return nil, nil, err
	}
	defer closeSrc()

	ks, err := store.NewKnowledgeStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := ks.LoadFrom(ctx, src, table); err != nil {
		_ = ks.Close()
		return nil, nil, err
	}

	kb := service.NewKnowledgeService(onto, ks, table, geocoder, zap.NewNop())
	return kb, func() { _ = ks.Close() }, nil
}

func parseConstraints(args []string) (domain.Constraints, error) {
	constraints := make(domain.Constraints)
	for _, arg := range args {
		slot, value, ok := strings.Cut(arg, "=")
		if !ok || slot == "" {
			return nil, fmt.Errorf("constraint %q: expected slot=value", arg)
		}
		constraints[slot] = append(constraints[slot], value)
	}
	return constraints, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
