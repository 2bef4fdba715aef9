package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/tablebook/internal/booking"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/reservation"
)

type bookOptions struct {
	name    string
	country string
	phone   string
	email   string
	date    string
	time    string
	guests  int
	request string
	dishes  []string
}

func newBookCmd(flags *globalFlags) *cobra.Command {
	opts := &bookOptions{}
	c := &cobra.Command{
		Use:   "book",
		Short: "Submit a reservation through the booking form rules",
		Example: `  tablebookctl book --name "Amina Alaoui" --phone 612345678 --date 2026-05-11 --time 19:00 --guests 4 \
    --dish "desserts/Crème caramel=2"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd, flags, opts)
		},
	}
	c.Flags().StringVar(&opts.name, "name", "", "customer name")
	c.Flags().StringVar(&opts.country, "country", "", "calling code (default $DEFAULT_COUNTRY)")
	c.Flags().StringVar(&opts.phone, "phone", "", "local phone number")
	c.Flags().StringVar(&opts.email, "email", "", "optional email")
	c.Flags().StringVar(&opts.date, "date", "", "YYYY-MM-DD")
	c.Flags().StringVar(&opts.time, "time", "", "HH:MM, one of the offered slots")
	c.Flags().IntVar(&opts.guests, "guests", 2, "party size")
	c.Flags().StringVar(&opts.request, "request", "", "special request")
	c.Flags().StringArrayVar(&opts.dishes, "dish", nil, `pre-order dish as "category/name=qty" (repeatable)`)
	for _, name := range []string{"name", "phone", "date", "time"} {
		_ = c.MarkFlagRequired(name)
	}
	return c
}

func runBook(cmd *cobra.Command, flags *globalFlags, opts *bookOptions) error {
	ctx := cmd.Context()
	d, err := reservation.ParseDate(opts.date)
	if err != nil || d.IsZero() {
		return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
	}
	dishes, err := parseDishes(opts.dishes)
	if err != nil {
		return err
	}

	e := flags.load(cmd)
	m, err := menu.Load()
	if err != nil {
		return err
	}
	ctrl := booking.NewController(
		booking.Config{DefaultCountry: e.cfg.DefaultCountry, WindowDays: e.cfg.BookingWindowDays},
		booking.Dependencies{Sink: e.api, Slots: e.slots, Menu: m, Logger: e.logger},
	)
	defer ctrl.Close()
	ctrl.Init(ctx)

	ctrl.SetName(opts.name)
	if opts.country != "" {
		ctrl.SetCountry(opts.country)
	}
	ctrl.SetPhone(opts.phone)
	ctrl.SetEmail(opts.email)
	ctrl.SelectDate(ctx, d)
	ctrl.Settle()
	if err := ctrl.SelectTime(opts.time); err != nil {
		printSlots(cmd.ErrOrStderr(), ctrl.State())
		return fmt.Errorf("%s is not offered on %s", opts.time, d)
	}
	ctrl.SetPartySize(opts.guests)
	ctrl.SetSpecialRequest(opts.request)
	if len(dishes) > 0 {
		ctrl.SetPreorder(true)
		for _, sel := range dishes {
			if err := ctrl.SetDishQuantity(sel.category, sel.name, sel.qty); err != nil {
				return fmt.Errorf("dish %s/%s: %w", sel.category, sel.name, err)
			}
		}
	}

	conf, err := ctrl.Submit(ctx)
	if err != nil {
		printFormErrors(cmd.ErrOrStderr(), ctrl.State())
		if errors.Is(err, booking.ErrInvalidForm) {
			return errors.New("reservation not sent")
		}
		return err
	}

	out := cmd.OutOrStdout()
	printf(out, "Réservation #%s : %s\n", conf.ID, conf.StatusLabel())
	printf(out, "%s, %s à %s, %s\n", conf.CustomerName, conf.LongDate(), conf.Time, conf.GuestsLabel())
	if conf.SpecialRequests != "" {
		printf(out, "%s\n", conf.SpecialRequests)
	}
	return nil
}

type dishSelection struct {
	category string
	name     string
	qty      int
}

// parseDishes reads "category/name=qty"; a missing "=qty" means one.
func parseDishes(raw []string) ([]dishSelection, error) {
	out := make([]dishSelection, 0, len(raw))
	for _, r := range raw {
		ref, qtyText, hasQty := strings.Cut(r, "=")
		category, name, ok := strings.Cut(ref, "/")
		category, name = strings.TrimSpace(category), strings.TrimSpace(name)
		if !ok || category == "" || name == "" {
			return nil, fmt.Errorf("invalid --dish %q (want category/name=qty)", r)
		}
		qty := 1
		if hasQty {
			n, err := strconv.Atoi(strings.TrimSpace(qtyText))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in --dish %q", r)
			}
			qty = n
		}
		out = append(out, dishSelection{category: category, name: name, qty: qty})
	}
	return out, nil
}

func printFormErrors(w io.Writer, st booking.State) {
	if st.GeneralError != "" {
		printf(w, "%s\n", st.GeneralError)
	}
	fields := make([]string, 0, len(st.Errors))
	for f := range st.Errors {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		printf(w, "  %s: %s\n", f, st.Errors[f])
	}
}

func printSlots(w io.Writer, st booking.State) {
	if st.Slots == nil {
		return
	}
	var offered []string
	for _, s := range st.Slots.Slots {
		if s.Available {
			offered = append(offered, s.Time)
		}
	}
	if len(offered) == 0 {
		printf(w, "no slot offered\n")
		return
	}
	printf(w, "offered: %s\n", strings.Join(offered, ", "))
}
