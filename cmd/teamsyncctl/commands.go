package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"

	"github.com/teamsync/teamsync/internal/api"
	"github.com/teamsync/teamsync/internal/app"
	"github.com/teamsync/teamsync/internal/app/maintenance"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/security"
	"github.com/teamsync/teamsync/internal/services"
)

// copyToClipboard is swapped out in tests; headless hosts have no clipboard.
var copyToClipboard = clipboard.WriteAll

const timeLayout = "2006-01-02 15:04"

type cli struct {
	svc     *api.Services
	cfg     *app.Config
	auditor *security.Auditor
	out     io.Writer
}

func newCLI(svc *api.Services, cfg *app.Config, auditor *security.Auditor, out io.Writer) *cli {
	return &cli{svc: svc, cfg: cfg, auditor: auditor, out: out}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}

	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	switch {
	case args[0] == "team" && sub == "list":
		return c.teamList(ctx)
	case args[0] == "team" && sub == "set-tier":
		return c.teamSetTier(ctx, args[2:])
	case args[0] == "roster":
		return c.roster(ctx, args[1:])
	case args[0] == "invite" && sub == "create":
		return c.inviteCreate(ctx, args[2:])
	case args[0] == "invite" && sub == "list":
		return c.inviteList(ctx, args[2:])
	case args[0] == "invite" && sub == "revoke":
		return c.inviteRevoke(ctx, args[2:])
	case args[0] == "activity":
		return c.activity(ctx, args[1:])
	case args[0] == "maintenance" && sub == "run":
		return c.maintenanceRun(ctx)
	case args[0] == "doctor":
		return c.doctor(ctx)
	}
	return fmt.Errorf("unknown command %q", strings.Join(args, " "))
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) teamList(ctx context.Context) error {
	teams, err := c.svc.Teams.List(ctx)
	if err != nil {
		return err
	}

	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tSPORT\tTIER\tSTATUS")
	for _, team := range teams {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", team.ID, team.Name, team.Sport, team.Tier, team.Status)
	}
	return tw.Flush()
}

func (c *cli) teamSetTier(ctx context.Context, args []string) error {
	fs := c.flags("team set-tier")
	teamID := fs.String("team", "", "Team ID")
	tierName := fs.String("tier", "", "free|pro|club|enterprise")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *teamID == "" || *tierName == "" {
		return errors.New("--team and --tier are required")
	}

	tier, err := membership.ParseTier(*tierName)
	if err != nil {
		return err
	}
	team, err := c.svc.Teams.SetTier(ctx, *teamID, tier, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s is now on the %s plan\n", team.Name, team.Tier)
	return nil
}

func (c *cli) roster(ctx context.Context, args []string) error {
	fs := c.flags("roster")
	teamID := fs.String("team", "", "Team ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *teamID == "" {
		return errors.New("--team is required")
	}

	overview, err := c.svc.Teams.Overview(ctx, *teamID)
	if err != nil {
		return err
	}
	members, err := c.svc.Roster.ListMembers(ctx, *teamID)
	if err != nil {
		return err
	}

	usage := overview.Usage
	fmt.Fprintf(c.out, "%s (%s): players %d/%d, admins %d/%d\n",
		overview.Team.Name, overview.Team.Tier,
		overview.Counts.Players, usage.Limits.MaxPlayers,
		overview.Counts.Admins, usage.Limits.MaxAdmins,
	)

	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tJOINED")
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Email, m.Role, m.CreatedAt.Format(timeLayout))
	}
	return tw.Flush()
}

func (c *cli) inviteCreate(ctx context.Context, args []string) error {
	fs := c.flags("invite create")
	teamID := fs.String("team", "", "Team ID")
	role := fs.String("role", string(membership.RolePlayer), "player|admin")
	expires := fs.Duration("expires", 0, "Lifetime of the invite (default from config)")
	maxUses := fs.Int("max-uses", 0, "Redemption ceiling, 0 for unlimited")
	copyLink := fs.Bool("copy", false, "Copy the join link to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *teamID == "" {
		return errors.New("--team is required")
	}

	issued, err := c.svc.Admission.IssueInvite(ctx, services.IssueInviteInput{
		TeamID:    *teamID,
		Role:      membership.Role(strings.ToLower(*role)),
		ExpiresIn: *expires,
		MaxUses:   *maxUses,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "code:    %s\nlink:    %s\nexpires: %s\n",
		issued.Invite.Code, issued.Link, issued.Invite.ExpiresAt.Format(timeLayout))

	if *copyLink {
		if err := copyToClipboard(issued.Link); err != nil {
			fmt.Fprintf(c.out, "clipboard unavailable: %v\n", err)
		} else {
			fmt.Fprintln(c.out, "link copied to clipboard")
		}
	}
	return nil
}

func (c *cli) inviteList(ctx context.Context, args []string) error {
	fs := c.flags("invite list")
	teamID := fs.String("team", "", "Team ID")
	status := fs.String("status", string(services.InviteStatusActive), "active|expired|inactive|all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *teamID == "" {
		return errors.New("--team is required")
	}

	invites, err := c.svc.Registry.ListInvites(ctx, *teamID, services.InviteStatus(*status))
	if err != nil {
		return err
	}

	now := time.Now()
	tw := c.table()
	fmt.Fprintln(tw, "ID\tCODE\tROLE\tUSES\tEXPIRES\tSTATE")
	for _, inv := range invites {
		uses := fmt.Sprintf("%d", inv.Uses)
		if inv.MaxUses > 0 {
			uses = fmt.Sprintf("%d/%d", inv.Uses, inv.MaxUses)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.ID, inv.Code, inv.Role, uses, inv.ExpiresAt.Format(timeLayout), inv.StateAt(now))
	}
	return tw.Flush()
}

func (c *cli) inviteRevoke(ctx context.Context, args []string) error {
	fs := c.flags("invite revoke")
	id := fs.String("id", "", "Invite ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	invite, err := c.svc.Admission.RevokeInvite(ctx, "", *id, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "invite %s deactivated\n", invite.Code)
	return nil
}

func (c *cli) activity(ctx context.Context, args []string) error {
	fs := c.flags("activity")
	teamID := fs.String("team", "", "Team ID")
	action := fs.String("action", "", "Action, or a prefix such as invite.*")
	limit := fs.Int("limit", 20, "Entries to show")
	before := fs.String("before", "", "Cursor from a previous page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *teamID == "" {
		return errors.New("--team is required")
	}

	page, err := c.svc.Audit.TeamActivity(ctx, *teamID, services.ActivityQuery{
		Action: *action,
		Limit:  *limit,
		Before: *before,
	})
	if err != nil {
		return err
	}

	tw := c.table()
	fmt.Fprintln(tw, "WHEN\tACTION\tRESULT\tACTOR\tDETAILS")
	for _, entry := range page.Entries {
		actor := "-"
		if entry.ActorID != nil {
			actor = *entry.ActorID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			entry.CreatedAt.Format(timeLayout), entry.Action, entry.Result, actor, string(entry.Metadata))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.NextCursor != "" {
		fmt.Fprintf(c.out, "more: --before %s\n", page.NextCursor)
	}
	return nil
}

func (c *cli) maintenanceRun(ctx context.Context) error {
	cleaner := maintenance.NewCleaner(c.svc.Registry, c.svc.Audit,
		maintenance.WithAuditRetentionDays(c.cfg.Maintenance.AuditRetentionDays),
		maintenance.WithInviteRetention(c.cfg.Invites.Retention),
	)
	if err := cleaner.RunOnce(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "maintenance complete")
	return nil
}

// errDoctorFailed makes the process exit non-zero without repeating the report.
var errDoctorFailed = errors.New("security audit found failing checks")

func (c *cli) doctor(ctx context.Context) error {
	if c.auditor == nil {
		return errors.New("security auditor unavailable")
	}

	result := c.auditor.Run(ctx)
	tw := c.table()
	fmt.Fprintln(tw, "STATUS\tCHECK\tMESSAGE")
	for _, check := range result.Checks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", strings.ToUpper(string(check.Status)), check.ID, check.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, check := range result.Checks {
		if check.Status != security.StatusPass && check.Remediation != "" {
			fmt.Fprintf(c.out, "- %s: %s\n", check.ID, check.Remediation)
		}
	}
	fmt.Fprintf(c.out, "%d pass, %d warn, %d fail\n",
		result.Summary[string(security.StatusPass)],
		result.Summary[string(security.StatusWarn)],
		result.Summary[string(security.StatusFail)],
	)

	if result.Failed() {
		return errDoctorFailed
	}
	return nil
}
