package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/linemk/orders-admin/internal/adminview"
	"github.com/linemk/orders-admin/internal/domain/models"
)

var statusColors = map[models.OrderStatus]*color.Color{
	models.OrderStatusPending:    color.New(color.FgYellow),
	models.OrderStatusProcessing: color.New(color.FgBlue),
	models.OrderStatusCompleted:  color.New(color.FgGreen),
	models.OrderStatusCancelled:  color.New(color.FgRed),
}

var alertColor = color.New(color.FgRed, color.Bold)

func colorStatus(s models.OrderStatus) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}

// formatItems: "2x Latte (extras: shot, syrup; milk: oat)"
func formatItems(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		s := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		if len(it.Customizations) > 0 {
			keys := make([]string, 0, len(it.Customizations))
			for k := range it.Customizations {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			opts := make([]string, 0, len(keys))
			for _, k := range keys {
				opts = append(opts, k+": "+it.Customizations[k].String())
			}
			s += " (" + strings.Join(opts, "; ") + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func formatTotal(o *models.Order) string {
	return "$" + o.TotalAmount.StringFixed(2)
}

// formatDetails - заказ целиком, как его вернул API
func formatDetails(o *models.Order) (string, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func renderTable(w io.Writer, snap adminview.Snapshot, filter adminview.Filter) {
	bold := color.New(color.Bold)

	if snap.Err != nil {
		color.New(color.FgWhite, color.BgRed).Fprintf(w, " %s ", snap.Err.Error())
		fmt.Fprintln(w, "  (d to dismiss)")
	}

	visible := filter.Apply(snap.Orders)
	bold.Fprintf(w, "Orders: %d shown, filter %s", len(visible), filter)
	if !snap.LastRefresh.IsZero() {
		fmt.Fprintf(w, ", refreshed %s", snap.LastRefresh.Format("15:04:05"))
	}
	fmt.Fprintln(w)

	if len(visible) == 0 {
		fmt.Fprintln(w, "No orders found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tITEMS\tTOTAL\tSTATUS\tCREATED")
	for _, o := range visible {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ShortID(),
			o.DisplayName(),
			formatItems(o.Items),
			formatTotal(o),
			colorStatus(o.Status),
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func renderUsers(w io.Writer, users []*models.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tCREATED")
	for _, u := range users {
		p := models.ProfileFromMetadata(u.UserMetadata, u.Email)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Email, p.FullName, u.CreatedAt.Local().Format("2006-01-02"))
	}
	_ = tw.Flush()
}
