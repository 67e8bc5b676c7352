package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Fn-M/HousingManager/internal/app"
	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/dashboard"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/Fn-M/HousingManager/internal/listview"
)

// deps is filled in by the root Before hook.
type deps struct {
	app  *app.App
	user string
}

func (d *deps) service() *dashboard.Service { return d.app.Service }

// load fetches the listings, falling back to the cache.
func (d *deps) load(ctx context.Context) error {
	if err := d.app.Start(ctx); err != nil {
		return fmt.Errorf("load listings: %s", apperr.Message(err))
	}
	return nil
}

// viewer names the session the detail view is mounted under.
func (d *deps) viewer() string {
	if d.user == "" {
		return "housingctl"
	}
	return d.user
}

// openView loads one listing the way the dashboard does. Section failures are
// reported on the state; only a missing listing is an error.
func (d *deps) openView(ctx context.Context, id string) (*detail.View, error) {
	v, err := d.service().OpenView(ctx, d.viewer(), id)
	if v == nil {
		return nil, err
	}
	if _, ok := v.Listing(); !ok {
		return nil, errors.New(apperr.Message(err))
	}
	return v, nil
}

type ListCmd struct {
	deps *deps

	// flags
	search    string
	status    string
	locations []string
	sortKey   string
	order     string
}

func NewListCmd(d *deps) *ListCmd {
	return &ListCmd{deps: d}
}

func (cmd *ListCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List tracked listings",
		UsageText: "housingctl list [--q text] [--status s] [--location city]... [--sort key] [--order asc|desc]",
		Description: fmt.Sprintf(`Prints the listing table with the same filters as the dashboard.

Sort keys: %s`, strings.Join(listview.SortKeys, ", ")),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "q",
				Usage:       "search name and location",
				Destination: &cmd.search,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "only listings with this status",
				Destination: &cmd.status,
			},
			&cli.StringSliceFlag{
				Name:        "location",
				Usage:       "only listings in these cities (repeatable)",
				Destination: &cmd.locations,
			},
			&cli.StringFlag{
				Name:        "sort",
				Usage:       "sort key",
				Destination: &cmd.sortKey,
			},
			&cli.StringFlag{
				Name:        "order",
				Usage:       "asc or desc",
				Value:       "asc",
				Destination: &cmd.order,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ListCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.sortKey != "" && !listview.IsSortable(cmd.sortKey) {
		return fmt.Errorf("unknown sort key %q", cmd.sortKey)
	}
	if err := cmd.deps.load(ctx); err != nil {
		return err
	}

	res := cmd.deps.service().Listings(listview.Query{
		Search:    cmd.search,
		Status:    cmd.status,
		Locations: cmd.locations,
		Sort: listview.Sort{
			Key:       cmd.sortKey,
			Direction: listview.ParseDirection(cmd.order),
		},
	})

	out := c.Root().Writer
	if res.Shown == 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render("No listings found"))
		return nil
	}
	_, _ = fmt.Fprintln(out, renderListings(res.Items))
	_, _ = fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d of %d listings", res.Shown, res.Total)))
	return nil
}

type ShowCmd struct {
	deps *deps
}

func NewShowCmd(d *deps) *ShowCmd {
	return &ShowCmd{deps: d}
}

func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one listing with its photos and comments",
		UsageText: "housingctl show <id>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("listing id required")
	}
	v, err := cmd.deps.openView(ctx, id)
	if err != nil {
		return err
	}
	defer cmd.deps.service().CloseView(cmd.deps.viewer())

	_, _ = fmt.Fprintln(c.Root().Writer, renderDetail(v.State()))
	return nil
}

type CommentCmd struct {
	deps *deps

	replyTo string
}

func NewCommentCmd(d *deps) *CommentCmd {
	return &CommentCmd{deps: d}
}

func (cmd *CommentCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "comment",
		Usage:     "Comment on a listing",
		UsageText: "housingctl --user <name> comment <id> <text> [--reply-to comment-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "reply-to",
				Usage:       "id of the comment to answer",
				Destination: &cmd.replyTo,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CommentCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.deps.user == "" {
		return fmt.Errorf("--user (or HM_USER) is required to comment")
	}
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: %s", c.UsageText)
	}
	id := c.Args().Get(0)
	text := strings.Join(c.Args().Slice()[1:], " ")

	v, err := cmd.deps.openView(ctx, id)
	if err != nil {
		return err
	}
	defer cmd.deps.service().CloseView(cmd.deps.viewer())

	if cmd.replyTo != "" {
		err = v.Reply(ctx, cmd.replyTo, text)
	} else {
		err = v.AddComment(ctx, text)
	}
	if err != nil {
		return errors.New(apperr.Message(err))
	}

	_, _ = fmt.Fprintln(c.Root().Writer, renderComments(v.State().Comments))
	return nil
}

type AddCmd struct {
	deps *deps

	viewDate string
}

func NewAddCmd(d *deps) *AddCmd {
	return &AddCmd{deps: d}
}

func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Track a new listing by its Funda link",
		UsageText: "housingctl add <url> [--view-date 2006-01-02T15:04]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "view-date",
				Usage:       "scheduled viewing (YYYY-MM-DD or YYYY-MM-DDTHH:MM)",
				Destination: &cmd.viewDate,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	link := c.Args().First()
	if link == "" {
		return fmt.Errorf("listing url required")
	}
	var viewDate *time.Time
	if cmd.viewDate != "" {
		t, err := parseViewDate(cmd.viewDate)
		if err != nil {
			return err
		}
		viewDate = &t
	}

	id, err := cmd.deps.service().AddListing(ctx, link, viewDate)
	if err != nil {
		return errors.New(apperr.Message(err))
	}
	_, _ = fmt.Fprintln(c.Root().Writer, okStyle.Render("added listing "+id))
	return nil
}

type DeleteCmd struct {
	deps *deps
}

func NewDeleteCmd(d *deps) *DeleteCmd {
	return &DeleteCmd{deps: d}
}

func (cmd *DeleteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Stop tracking a listing and delete its photos",
		UsageText: "housingctl delete <id>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *DeleteCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("listing id required")
	}
	if err := cmd.deps.service().DeleteListing(ctx, id); err != nil {
		return errors.New(apperr.Message(err))
	}
	_, _ = fmt.Fprintln(c.Root().Writer, okStyle.Render("deleted listing "+id))
	return nil
}

type ViewingsCmd struct {
	deps *deps
}

func NewViewingsCmd(d *deps) *ViewingsCmd {
	return &ViewingsCmd{deps: d}
}

func (cmd *ViewingsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "viewings",
		Usage:     "List scheduled viewings in date order",
		UsageText: "housingctl viewings",
		Action:    cmd.run,
	})
	return app
}

func (cmd *ViewingsCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.deps.load(ctx); err != nil {
		return err
	}
	viewings := dashboard.Viewings(cmd.deps.service().Store().All())
	out := c.Root().Writer
	if len(viewings) == 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render("No viewings scheduled"))
		return nil
	}
	_, _ = fmt.Fprintln(out, renderViewings(viewings))
	return nil
}

var viewDateLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseViewDate reads a local date with optional time.
func parseViewDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range viewDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid view date %q, expected YYYY-MM-DD or YYYY-MM-DDTHH:MM", s)
}
