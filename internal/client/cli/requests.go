package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/supportdesk/internal/client/attachments"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/policy"
)

const timeLayout = "2006-01-02 15:04"

func (a *App) List(ctx context.Context, args []string) error {
	var status models.RequestStatus
	if len(args) > 0 {
		s, err := models.ParseStatus(strings.Join(args, " "))
		if err != nil {
			return err
		}
		status = s
	}

	page, err := a.requests.List(ctx, 0, status)
	if err != nil {
		return err
	}
	if len(page.Content) == 0 {
		a.printf("No requests.\n")
		return nil
	}

	for _, r := range page.Content {
		a.printf("#%-5d %-12s %s (by %s%s)\n", r.ID, "["+r.Status.Label()+"]", r.Title, r.CreatedBy.Username, assignee(r))
	}
	a.printf("%d of %d request(s)\n", len(page.Content), page.TotalElements)
	return nil
}

func assignee(r models.SupportRequest) string {
	if r.AssignedTo == nil {
		return ""
	}
	return ", assigned to " + r.AssignedTo.Username
}

// Show prints a request, its comments and the attachments of both.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("show <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	d, err := a.requests.Detail(ctx, id)
	if err != nil {
		return err
	}
	r := d.Request

	a.printf("#%d %s\n", r.ID, r.Title)
	a.printf("Status: %s   Created by: %s   At: %s%s\n", r.Status.Label(), r.CreatedBy.Username, r.CreatedAt.Format(timeLayout), assignee(r))
	if r.Description != "" {
		a.printf("\n%s\n", r.Description)
	}
	a.printPermissions(d.Permissions)

	if err := a.showAttachments(ctx, "Attachments", models.RequestScope(r.ID), d.Permissions.ManageThread); err != nil {
		return err
	}

	a.printf("\nComments (%d)\n", len(d.Comments))
	user, _ := a.session.User()
	for _, c := range d.Comments {
		a.printf("- [%d] %s at %s:\n  %s\n", c.ID, c.Author.Username, c.CreatedAt.Format(timeLayout),
			strings.ReplaceAll(c.Body, "\n", "\n  "))
		canManage := policy.CanDeleteComment(&user, c.Author, a.session.Roles())
		if err := a.showAttachments(ctx, "  Comment attachments", models.CommentScope(r.ID, c.ID), canManage); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printPermissions(p policy.Permissions) {
	var can []string
	if p.ManageThread {
		can = append(can, "delete", "attach")
	}
	if p.Assign {
		can = append(can, "assign")
	}
	if p.ChangeStatus && len(p.Transitions) > 0 {
		next := make([]string, len(p.Transitions))
		for i, s := range p.Transitions {
			next[i] = string(s)
		}
		can = append(can, "status -> "+strings.Join(next, "|"))
	}
	if len(can) > 0 {
		a.printf("You can: %s\n", strings.Join(can, ", "))
	}
}

func (a *App) showAttachments(ctx context.Context, title string, scope models.AttachmentScope, canDelete bool) error {
	list, err := a.attachments.List(ctx, scope)
	if err != nil {
		return err
	}
	v := attachments.Project(title, list, canDelete)

	a.outMu.Lock()
	defer a.outMu.Unlock()
	return attachments.Render(a.out, v)
}

func (a *App) Create(ctx context.Context) error {
	title, err := askLine(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	desc, err := ReadText(a.reader, "Description", a.out)
	if err != nil {
		return err
	}

	r, err := a.requests.Create(ctx, title, desc)
	if err != nil {
		return err
	}
	a.printf("Created request #%d\n", r.ID)
	return nil
}

func (a *App) Comment(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("comment <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	body, err := ReadText(a.reader, "Comment", a.out)
	if err != nil {
		return err
	}

	c, err := a.requests.AddComment(ctx, id, body)
	if err != nil {
		return err
	}
	a.printf("Added comment %d to #%d\n", c.ID, id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("delete <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := a.requests.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Deleted request #%d\n", id)
	return nil
}

func (a *App) DeleteComment(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("delete-comment <id> <cid>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cid, err := parseID(args[1])
	if err != nil {
		return err
	}
	if err := a.requests.DeleteComment(ctx, id, cid); err != nil {
		return err
	}
	a.printf("Deleted comment %d\n", cid)
	return nil
}

func (a *App) Status(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("status <id> <STATUS>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	to, err := models.ParseStatus(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	r, err := a.requests.Transition(ctx, id, to)
	if err != nil {
		return err
	}
	a.printf("#%d is now %s\n", r.ID, r.Status.Label())
	return nil
}

func (a *App) Assign(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("assign <id> <uid>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	uid, err := parseID(args[1])
	if err != nil {
		return err
	}

	r, err := a.requests.Assign(ctx, id, uid)
	if err != nil {
		return err
	}
	a.printf("#%d%s\n", r.ID, assignee(r))
	return nil
}

// Users lists the users requests can be assigned to.
func (a *App) Users(ctx context.Context) error {
	users, err := a.requests.AssignableUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		a.printf("%-4d %-16s %s\n", u.ID, u.Username, joinRoles(u.Roles))
	}
	return nil
}

func (a *App) AdminUsers(ctx context.Context) error {
	users, err := a.requests.AdminUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		a.printf("%-4d %-16s %-24s %s\n", u.ID, u.Username, u.Email, joinRoles(u.Roles))
	}
	return nil
}

// Roles replaces a user's roles with a comma-separated list.
func (a *App) Roles(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("roles <uid> ROLE[,ROLE]")
	}
	uid, err := parseID(args[0])
	if err != nil {
		return err
	}
	roles, err := parseRoles(args[1])
	if err != nil {
		return err
	}

	u, err := a.requests.SetRoles(ctx, uid, roles)
	if err != nil {
		return err
	}
	a.printf("%s: %s\n", u.Username, joinRoles(u.Roles))
	return nil
}
