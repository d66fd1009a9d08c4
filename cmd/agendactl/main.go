package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"agenda-activites-report-ui/internal/config"
	"agenda-activites-report-ui/internal/connectors/activities"
	"agenda-activites-report-ui/internal/connectors/kobo"
	"agenda-activites-report-ui/internal/report"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "agendactl",
		Short:   "Outils en ligne de commande pour l'agenda des activités",
		Version: version,
	}
	root.AddCommand(newFetchCmd(), newTransformCmd(), newTopCmd(), newKPIsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newFetchCmd downloads the raw Kobo submissions to a local JSON file.
func newFetchCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Télécharge les soumissions Kobo brutes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			client := kobo.NewClient(cfg.KoboBaseURL, cfg.KoboToken, cfg.KoboAssetUID, cfg.KoboTimeout)
			if !client.Enabled() {
				return fmt.Errorf("kobo is not configured (set APP_KOBO_TOKEN and APP_KOBO_ASSET_UID)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.KoboTimeout)
			defer cancel()
			subs, err := client.FetchSubmissions(ctx)
			if err != nil {
				return err
			}

			raw, err := json.MarshalIndent(subs, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %d submissions to %s\n", len(subs), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "submissions.json", "fichier de sortie")
	return cmd
}

// newTransformCmd normalizes raw submissions into the published
// activities.json shape.
func newTransformCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Normalise les soumissions brutes en activities.json",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.FromEnv()

			raw, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			var subs []kobo.Submission
			if err := json.Unmarshal(raw, &subs); err != nil {
				return fmt.Errorf("decode %s: %w", in, err)
			}

			records := kobo.Normalize(subs, cfg.Risk, time.Now().UTC())
			encoded, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %d activities to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "submissions.json", "fichier de soumissions brutes")
	cmd.Flags().StringVarP(&out, "out", "o", "activities.json", "fichier de sortie")
	return cmd
}

// newTopCmd prints the at-risk table from a local activities.json.
func newTopCmd() *cobra.Command {
	var in string
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Affiche les activités les plus à risque",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			records, err := loadRecords(in)
			if err != nil {
				return err
			}

			rows := cfg.Risk.TopAtRisk(records, time.Now().UTC(), limit)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tCODE\tÉCHÉANCE\tSTATUT\tTITRE")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.Score, r.CodeActivite, r.DateFin, r.Statut, r.Titre)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "data/activities.json", "fichier activities.json")
	cmd.Flags().IntVarP(&limit, "limit", "n", report.DefaultTopRiskLimit, "nombre de lignes")
	return cmd
}

// newKPIsCmd prints the summary counters from a local activities.json.
func newKPIsCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Affiche les indicateurs clés",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			records, err := loadRecords(in)
			if err != nil {
				return err
			}

			s := report.Summarize(records, cfg.Risk, time.Now().UTC())
			fmt.Printf("activités\t%d\n", s.Total)
			fmt.Printf("en retard\t%d\n", s.Overdue)
			fmt.Printf("avec suivi\t%d\n", s.WithFollowup)
			fmt.Printf("à risque\t%d\n", s.AtRisk)
			if s.AvgProgressPct != nil {
				fmt.Printf("avancement moyen\t%.1f%%\n", *s.AvgProgressPct)
			} else {
				fmt.Printf("avancement moyen\tn/a\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "data/activities.json", "fichier activities.json")
	return cmd
}

func loadRecords(path string) ([]report.Activity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return activities.DecodeRecords(raw)
}
