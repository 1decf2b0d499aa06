package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"braidsbar/queue-service/internal/config"
	"braidsbar/queue-service/internal/geo"
	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/schedule"

	"github.com/spf13/cobra"
)

const startLayout = "2006-01-02T15:04"

func newSlotCommand() *cobra.Command {
	var (
		start         string
		duration      time.Duration
		timezone      string
		cataloguePath string
	)
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Print the first start time that fits a service of the given length",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
			earliest, err := time.ParseInLocation(startLayout, start, loc)
			if err != nil {
				return fmt.Errorf("start must look like %s: %w", startLayout, err)
			}
			catalogue, err := config.LoadCatalogue(cataloguePath)
			if err != nil {
				return err
			}
			week, err := catalogue.Week()
			if err != nil {
				return err
			}

			scheduler := schedule.NewScheduler(schedule.NewCalendar(loc, week))
			slot, err := scheduler.FindSlot(earliest, duration)
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, schedule.ErrDegradedSchedule):
				fmt.Fprintf(out, "%s (no window fits, needs review)\n", slot.Format("Mon 2006-01-02 15:04"))
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintln(out, slot.Format("Mon 2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "earliest start, "+startLayout)
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Hour, "service length")
	cmd.Flags().StringVar(&timezone, "timezone", "Africa/Accra", "IANA timezone of the salon")
	cmd.Flags().StringVar(&cataloguePath, "catalogue", config.DefaultCataloguePath, "catalogue file with opening hours")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newDistanceCommand() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Estimate distance and travel time between two points",
		RunE: func(cmd *cobra.Command, args []string) error {
			origin, err := parseCoordinates(from)
			if err != nil {
				return fmt.Errorf("from: %w", err)
			}
			destination, err := parseCoordinates(to)
			if err != nil {
				return fmt.Errorf("to: %w", err)
			}
			estimate, err := geo.EstimateTravel(origin, destination)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f km, about %d min\n", estimate.DistanceKm, estimate.TravelMinutes)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "origin as lat,lng")
	cmd.Flags().StringVar(&to, "to", "", "destination as lat,lng or a branch name")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// parseCoordinates accepts "lat,lng" or a branch name.
func parseCoordinates(raw string) (models.Coordinates, error) {
	if branch, ok := models.ParseBranch(raw); ok {
		info, _ := models.LookupBranch(branch)
		return info.Coordinates, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return models.Coordinates{}, fmt.Errorf("want lat,lng, got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("lng: %w", err)
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}
