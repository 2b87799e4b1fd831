package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(headers ...interface{}) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(headers))
	return tw
}

func renderDeletions(deletions []models.AccountDeletion) string {
	if len(deletions) == 0 {
		return "no deletions"
	}
	tw := newTable("ID", "User", "Email", "Status", "Next step", "Attempts", "Started", "Completed", "Last error")
	for _, d := range deletions {
		next := "-"
		if step := d.NextStep(); step != nil {
			next = step.Name
		}
		started := d.StartedAt
		tw.AppendRow(table.Row{
			d.ID, d.UserID, d.Email, d.Status, next, d.Attempts,
			formatTime(&started), formatTime(d.CompletedAt), truncate(d.LastError, 48),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

func renderCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := newTable("Table", "Rows")
	for _, k := range keys {
		tw.AppendRow(table.Row{k, counts[k]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return tw.Render()
}

func renderUser(u *models.User) string {
	tw := newTable("Field", "Value")
	tw.AppendRows([]table.Row{
		{"ID", u.ID},
		{"Name", u.Name},
		{"Email", u.Email},
		{"Image", u.ImageURL},
		{"Joined", u.CreatedAt.Local().Format("2006-01-02 15:04")},
		{"Followers", joinIDs(u.Followers)},
		{"Following", joinIDs(u.Following)},
		{"Bookmarks", joinIDs(u.Bookmarks)},
	})
	return tw.Render()
}

func joinIDs(ids []uint) string {
	if len(ids) == 0 {
		return "-"
	}
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("%s (%d)", out, len(ids))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
