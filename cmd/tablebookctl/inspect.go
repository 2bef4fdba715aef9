package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/tablebook/internal/reservation"
)

func newCountriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the supported calling codes and phone formats",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "CODE\tCOUNTRY\tEXAMPLE\n")
			for _, c := range reservation.Countries() {
				printf(tw, "%s\t%s %s\t%s\n", c.Code, c.Flag, c.Name, c.Example)
			}
			_ = tw.Flush()
		},
	}
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var field, value, country string
	c := &cobra.Command{
		Use:   "check",
		Short: "Validate one field the way the booking form does",
		Example: `  tablebookctl check --field phone --value 612345678 --country +212
  tablebookctl check --field email --value test@gmial.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := reservation.Field(field)
			rules := reservation.Rules{}
			if f == reservation.FieldDate {
				// Closures and the booking window depend on the restaurant.
				e := flags.load(cmd)
				rules = reservation.Rules{
					Today:        e.slots.Today(),
					WindowDays:   e.cfg.BookingWindowDays,
					SpecialDates: e.slots.SpecialDates(cmd.Context()),
				}
			}
			check, err := reservation.CheckField(f, value, country, rules)
			if errors.Is(err, reservation.ErrUnknownField) {
				return fmt.Errorf("unknown --field %q", field)
			}
			out := cmd.OutOrStdout()
			if check.Valid {
				printf(out, "ok\n")
			} else {
				printf(out, "invalid (%s): %s\n", check.Code, check.Message)
			}
			if check.Advice != nil {
				printf(out, "advice (%s): %s\n", check.Advice.Status, check.Advice.Message)
				if check.Advice.Suggestion != "" {
					printf(out, "suggestion: %s\n", check.Advice.Suggestion)
				}
			}
			if !check.Valid {
				return errors.New("check failed")
			}
			return nil
		},
	}
	c.Flags().StringVar(&field, "field", "", "name, country, phone, email, date, time, party_size or special_request")
	c.Flags().StringVar(&value, "value", "", "raw value to check")
	c.Flags().StringVar(&country, "country", "", "calling code for --field phone (e.g. +212)")
	_ = c.MarkFlagRequired("field")
	return c
}

func newSlotsCmd(flags *globalFlags) *cobra.Command {
	var date string
	var asJSON bool
	c := &cobra.Command{
		Use:   "slots",
		Short: "Show the reconciled slot list for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := reservation.ParseDate(date)
			if err != nil || d.IsZero() {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			e := flags.load(cmd)
			res, err := e.slots.Reconcile(cmd.Context(), d, e.slots.SpecialDates(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			printf(out, "%s (%s)\n", d, res.Source)
			if res.Notice != "" {
				printf(out, "%s\n", res.Notice)
			}
			if res.Closed {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			printf(tw, "TIME\tSTATUS\tSPOTS\n")
			for _, s := range res.Slots {
				status := "complet"
				if s.Available {
					status = "disponible"
				}
				printf(tw, "%s\t%s\t%d\n", s.Time, status, s.AvailableCount)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&date, "date", "", "date to inspect (YYYY-MM-DD)")
	c.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	_ = c.MarkFlagRequired("date")
	return c
}
