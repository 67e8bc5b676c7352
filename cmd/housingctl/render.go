package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Fn-M/HousingManager/internal/dashboard"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/listview"
	"github.com/Fn-M/HousingManager/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const (
	dateLayout = "2006-01-02 15:04"
	empty      = "-"
)

// number renders an optional attribute; missing values print as a dash.
func number(v *float64, unit string) string {
	if v == nil {
		return empty
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func price(v *float64) string {
	if v == nil {
		return empty
	}
	return "€ " + strconv.FormatFloat(*v, 'f', 0, 64)
}

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return empty
	}
	return s
}

func viewDate(l models.Listing) string {
	if l.ViewDate == nil {
		return empty
	}
	return l.ViewDate.Local().Format(dateLayout)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

// renderListings prints the listing table in the dashboard's column order.
func renderListings(listings []models.Listing) string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{
			l.ID,
			text(l.Name),
			text(l.Location),
			price(l.Price),
			number(l.Space, "m²"),
			number(l.Rooms, ""),
			text(l.EnergyClass),
			listview.StatusLabel(l.Status),
			viewDate(l),
		})
	}
	return renderTable(
		[]string{"ID", "NAME", "LOCATION", "PRICE", "SPACE", "ROOMS", "ENERGY", "STATUS", "VIEWING"},
		rows,
	)
}

func renderViewings(viewings []dashboard.Viewing) string {
	rows := make([][]string, 0, len(viewings))
	for _, v := range viewings {
		rows = append(rows, []string{v.Date.Local().Format(dateLayout), v.ID, text(v.Name)})
	}
	return renderTable([]string{"DATE", "ID", "NAME"}, rows)
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteByte('\n')
}

// renderDetail prints a loaded detail view: attributes, photos in carousel
// order and the comment thread. Sections that failed to load show their error.
func renderDetail(st detail.State) string {
	var b strings.Builder

	if l := st.Listing; l != nil {
		b.WriteString(titleStyle.Render(text(l.Name)))
		b.WriteString("\n\n")
		field(&b, "Location", text(l.Location))
		field(&b, "Price", price(l.Price))
		field(&b, "Space", number(l.Space, "m²"))
		field(&b, "Terrain", number(l.Terrain, "m²"))
		field(&b, "Rooms", number(l.Rooms, ""))
		field(&b, "Energy", text(l.EnergyClass))
		field(&b, "Status", listview.StatusLabel(l.Status))
		field(&b, "Viewing", viewDate(*l))
		field(&b, "Link", text(l.Link))
		if l.Description != "" {
			b.WriteByte('\n')
			b.WriteString(l.Description)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(headerStyle.Render("Photos"))
	b.WriteByte('\n')
	switch {
	case st.Errors[detail.SectionPictures] != "":
		b.WriteString(errorStyle.Render(st.Errors[detail.SectionPictures]))
		b.WriteByte('\n')
	case st.Photos == nil || len(st.Photos.Photos) == 0:
		b.WriteString(mutedStyle.Render("No photos"))
		b.WriteByte('\n')
	default:
		for i, p := range st.Photos.Photos {
			marker := " "
			if p.IsPrimary {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s %2d  %s\n", marker, i+1, p.PictureURL)
		}
	}

	b.WriteByte('\n')
	b.WriteString(headerStyle.Render(fmt.Sprintf("Comments (%d)", len(st.Comments))))
	b.WriteByte('\n')
	if msg := st.Errors[detail.SectionComments]; msg != "" {
		b.WriteString(errorStyle.Render(msg))
		b.WriteByte('\n')
	} else {
		b.WriteString(renderComments(st.Comments))
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderComments indents each visible comment by its depth in the thread.
func renderComments(rows []detail.CommentRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No comments yet") + "\n"
	}
	var b strings.Builder
	for _, r := range rows {
		indent := strings.Repeat("  ", r.Depth)
		meta := fmt.Sprintf("%s · %s · %s", r.CreatedBy, r.CreatedAt.Local().Format(dateLayout), r.CommentID)
		if r.ReplyCount > 0 {
			meta += fmt.Sprintf(" · %d replies", r.ReplyCount)
			if r.Collapsed {
				meta += " (hidden)"
			}
		}
		b.WriteString(indent)
		b.WriteString(mutedStyle.Render(meta))
		b.WriteByte('\n')
		for _, line := range strings.Split(r.Description, "\n") {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
