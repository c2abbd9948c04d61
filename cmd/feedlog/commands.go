package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/model"
	"github.com/and161185/feedlog/internal/service"
	"github.com/and161185/feedlog/internal/view"
)

type handler func(a *app, name string, args []string, out io.Writer) error

var commands = map[string]handler{
	"signup":              cmdSignUp,
	"login":               cmdLogin,
	"logout":              cmdLogout,
	"whoami":              cmdWhoami,
	"account":             cmdAccount,
	"children":            cmdChildren,
	"child-add":           cmdChildAdd,
	"child-edit":          cmdChildEdit,
	"child-invite":        cmdChildInvite,
	"child-remove-parent": cmdChildRemoveParent,
	"select":              cmdSelect,
	"back":                cmdBack,
	"feed-add":            cmdFeedAdd,
	"feed-edit":           cmdFeedEdit,
	"feed-rm":             cmdFeedRm,
	"feeds":               cmdFeeds,
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func need(name string, vals ...string) error {
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s: missing required flag", errs.ErrValidation, name)
		}
	}
	return nil
}

func parseDate(s string) (model.Date, error) {
	if s == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return d, nil
}

// ---- account ----

func cmdSignUp(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	n := fs.String("name", "", "display name (default: part of email before @)")
	e := fs.String("email", "", "email")
	p := fs.String("password", "", "password")
	c := fs.String("confirm", "", "password confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *e, *p); err != nil {
		return err
	}
	u, err := a.tracker.SignUp(*n, *e, *p, *c)
	if err != nil {
		return err
	}
	printJSON(out, u)
	return nil
}

func cmdLogin(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	e := fs.String("email", "", "email")
	p := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *e, *p); err != nil {
		return err
	}
	u, err := a.tracker.SignIn(*e, *p)
	if err != nil {
		return err
	}
	printJSON(out, u)
	return nil
}

func cmdLogout(a *app, _ string, _ []string, out io.Writer) error {
	if err := a.tracker.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdWhoami(a *app, _ string, _ []string, out io.Writer) error {
	u, err := a.tracker.CurrentUser()
	if err != nil {
		return err
	}
	printJSON(out, u)
	return nil
}

func cmdAccount(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	n := fs.String("name", "", "new display name")
	e := fs.String("email", "", "new email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.tracker.UpdateAccount(*n, *e)
	if err != nil {
		return err
	}
	printJSON(out, u)
	return nil
}

// ---- children ----

func cmdChildren(a *app, _ string, _ []string, out io.Writer) error {
	list, err := a.tracker.Children()
	if err != nil {
		return err
	}
	printJSON(out, list)
	return nil
}

func cmdChildAdd(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	n := fs.String("name", "", "child's name")
	dob := fs.String("dob", "", "date of birth YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *n, *dob); err != nil {
		return err
	}
	d, err := parseDate(*dob)
	if err != nil {
		return err
	}
	c, err := a.tracker.AddChild(*n, d)
	if err != nil {
		return err
	}
	printJSON(out, c)
	return nil
}

func cmdChildEdit(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "child id")
	n := fs.String("name", "", "new name")
	dob := fs.String("dob", "", "new date of birth YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id); err != nil {
		return err
	}
	d, err := parseDate(*dob)
	if err != nil {
		return err
	}
	c, err := a.tracker.UpdateChildProfile(*id, *n, d)
	if err != nil {
		return err
	}
	printJSON(out, c)
	return nil
}

func cmdChildInvite(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "child id")
	e := fs.String("email", "", "email of the parent to invite")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id, *e); err != nil {
		return err
	}
	u, err := a.tracker.InviteParent(*id, *e)
	if err != nil {
		return err
	}
	printJSON(out, u)
	return nil
}

func cmdChildRemoveParent(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "child id")
	parent := fs.String("parent", "", "user id of the parent to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id, *parent); err != nil {
		return err
	}
	c, err := a.tracker.RemoveParent(*id, *parent)
	if err != nil {
		return err
	}
	printJSON(out, c)
	return nil
}

func cmdSelect(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "child id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id); err != nil {
		return err
	}
	c, err := a.tracker.SelectChild(*id)
	if err != nil {
		return err
	}
	printJSON(out, c)
	return nil
}

func cmdBack(a *app, _ string, _ []string, out io.Writer) error {
	if err := a.tracker.ClearSelection(); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

// ---- feedings ----

// feedingFlags binds the feeding form to fs. apply copies only the flags that
// were given onto in, so edits keep untouched fields.
func feedingFlags(fs *flag.FlagSet) (apply func(in *service.FeedingInput) error) {
	date := fs.String("date", "", "date YYYY-MM-DD (default today)")
	clock := fs.String("time", "", "time HH:MM (default now)")
	typ := fs.String("type", "", "bottle|breast")
	ml := fs.Int("ml", 0, "bottle amount in ml")
	left := fs.Int("left", 0, "left breast minutes")
	right := fs.Int("right", 0, "right breast minutes")
	notes := fs.String("notes", "", "notes")
	spit := fs.Bool("spit-up", false, "spit up")
	peed := fs.Bool("peed", false, "wet diaper")
	pooped := fs.Bool("pooped", false, "dirty diaper")

	return func(in *service.FeedingInput) error {
		var err error
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "date":
				d, perr := parseDate(*date)
				if perr != nil {
					err = perr
				}
				in.Date = d
			case "time":
				in.Time = *clock
			case "type":
				in.Type = model.FeedingType(strings.ToLower(*typ))
			case "ml":
				in.AmountMl = *ml
			case "left":
				in.LeftMinutes = *left
			case "right":
				in.RightMinutes = *right
			case "notes":
				in.Notes = *notes
			case "spit-up":
				in.SpitUp = *spit
			case "peed":
				in.Peed = *peed
			case "pooped":
				in.Pooped = *pooped
			}
		})
		return err
	}
}

func cmdFeedAdd(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	apply := feedingFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	var in service.FeedingInput
	if err := apply(&in); err != nil {
		return err
	}
	e, err := a.tracker.RecordFeeding(in)
	if err != nil {
		return err
	}
	printJSON(out, e)
	return nil
}

func cmdFeedEdit(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "entry id")
	apply := feedingFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id); err != nil {
		return err
	}
	old, ok := a.store.State().FindEntry(*id)
	if !ok {
		return fmt.Errorf("entry %q: %w", *id, errs.ErrNotFound)
	}
	in := service.FromEntry(old)
	if err := apply(&in); err != nil {
		return err
	}
	e, err := a.tracker.EditFeeding(*id, in)
	if err != nil {
		return err
	}
	printJSON(out, e)
	return nil
}

func cmdFeedRm(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	id := fs.String("id", "", "entry id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := need(name, *id); err != nil {
		return err
	}
	if err := a.tracker.DeleteFeeding(*id); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdFeeds(a *app, name string, args []string, out io.Writer) error {
	fs := newFlagSet(name)
	typ := fs.String("type", "all", "all|bottle|breast")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.tracker.Feedings(*typ)
	if err != nil {
		return err
	}
	if *asJSON {
		printJSON(out, list)
		return nil
	}
	for _, e := range list {
		fmt.Fprintln(out, feedLine(e))
	}
	return nil
}

// feedLine renders one entry for the list screen.
func feedLine(e model.FeedingEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-8s  %-6s", view.FormatDate(e.Date), view.FormatTime(e.Time), e.FeedingType)
	switch e.FeedingType {
	case model.Bottle:
		if e.AmountMl != nil {
			fmt.Fprintf(&b, "  %d ml", *e.AmountMl)
		}
	case model.Breast:
		if e.LeftBreastMinutes != nil {
			fmt.Fprintf(&b, "  L %s", view.FormatDuration(*e.LeftBreastMinutes))
		}
		if e.RightBreastMinutes != nil {
			fmt.Fprintf(&b, "  R %s", view.FormatDuration(*e.RightBreastMinutes))
		}
	}
	var tags []string
	if e.SpitUp {
		tags = append(tags, "spit-up")
	}
	if e.Peed {
		tags = append(tags, "peed")
	}
	if e.Pooped {
		tags = append(tags, "pooped")
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "  [%s]", strings.Join(tags, ", "))
	}
	if e.Notes != "" {
		fmt.Fprintf(&b, "  %s", e.Notes)
	}
	return b.String()
}
