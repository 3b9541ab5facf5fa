package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"saferoads/client"
	"saferoads/models"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

type clientFactory func() *client.Client

func severityColor(score int) *color.Color {
	switch models.SeverityFor(score) {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func scanCmd(newClient clientFactory) *cobra.Command {
	var lat, lng string

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Upload a road photo for assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var loc *models.Location
			if lat != "" || lng != "" {
				la, err1 := strconv.ParseFloat(lat, 64)
				lo, err2 := strconv.ParseFloat(lng, 64)
				if err1 != nil || err2 != nil {
					return fmt.Errorf("invalid coordinates %q, %q", lat, lng)
				}
				loc = &models.Location{Lat: la, Lng: lo}
			}

			contentType := mimetype.Detect(data).String()
			resp, err := newClient().Scan(cmd.Context(), args[0], contentType, bytes.NewReader(data), loc)
			if err != nil {
				return err
			}

			fmt.Printf("Damage score: %s\n", severityColor(resp.DamageScore).Sprintf("%d/100", resp.DamageScore))
			fmt.Printf("Severity:     %s\n", models.SeverityFor(resp.DamageScore))
			if resp.AutoReported {
				fmt.Println(color.New(color.FgHiMagenta).Sprint("Auto-reported to authorities"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lat, "lat", "", "latitude of the photo")
	cmd.Flags().StringVar(&lng, "lng", "", "longitude of the photo")
	return cmd
}

func reportsCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List stored reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := newClient().Reports(cmd.Context())
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Println("No reports yet.")
				return nil
			}

			fmt.Println("ID      Score    Created")
			fmt.Println("──────────────────────────────────────────")
			for _, r := range reports {
				fmt.Printf("%-7d %s  %s\n", r.Id, severityColor(r.DamageScore).Sprintf("%3d/100", r.DamageScore), r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func emergencyCmd(newClient clientFactory) *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "emergency",
		Short: "List emergency services near a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := newClient().Emergency(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}
			for _, s := range services {
				fmt.Printf("%-14s %s\n", color.New(color.FgCyan).Sprint(s.Type), s.Name)
			}
			if len(services) == 0 {
				fmt.Println("Nothing found nearby.")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 22.5726, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 88.3639, "longitude")
	return cmd
}

func airCmd(newClient clientFactory) *cobra.Command {
	var lat, lon string

	cmd := &cobra.Command{
		Use:   "air",
		Short: "Show the air quality payload for a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient().Air(cmd.Context(), lat, lon)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}

	cmd.Flags().StringVar(&lat, "lat", "22.5726", "latitude")
	cmd.Flags().StringVar(&lon, "lon", "88.3639", "longitude")
	return cmd
}

func configCmd(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the thresholds the service enforces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newClient().Config(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Damage threshold:     %d\n", cfg.DamageThreshold)
			fmt.Printf("Visibility threshold: %.2f km\n", cfg.VisibilityThresholdKm)
			fmt.Printf("Emergency radius:     %d m\n", cfg.EmergencyRadiusMeters)
			return nil
		},
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
