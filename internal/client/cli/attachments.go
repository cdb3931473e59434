package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/upload"
	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/filex"
)

// Attach submits local files to a request or comment. Uploads continue in
// the background; progress is visible through "uploads".
func (a *App) Attach(ctx context.Context, args []string) error {
	scope, paths, err := parseScope(args)
	if err != nil || len(paths) == 0 {
		return usageError("attach <id> [c:<cid>] <paths...>")
	}
	if err := a.checkManage(ctx, scope); err != nil {
		return err
	}

	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		f, err := filex.OpenLocal(p)
		if err != nil {
			a.printf("Skipping %s: %v\n", p, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil
	}

	tasks, err := a.attachments.Upload(ctx, scope, files...)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		a.printTask(t)
	}

	o, err := a.attachments.Uploader(ctx, scope)
	if err != nil {
		return err
	}
	a.printf("%s\n", slotHint(o))
	return nil
}

// checkManage refuses uploads and deletes the viewer may not perform on
// scope.
func (a *App) checkManage(ctx context.Context, scope models.AttachmentScope) error {
	ok, err := a.requests.CanManageScope(ctx, scope)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", scope, common.ErrorForbidden)
	}
	return nil
}

func slotHint(o *upload.Orchestrator) string {
	cfg := o.Config()
	return fmt.Sprintf("%d of %d slots available. Max %s per file.",
		o.Remaining(), cfg.MaxCount, filex.FormatBytes(cfg.MaxFileSizeBytes))
}

func (a *App) printTask(t upload.Task) {
	line := fmt.Sprintf("%s  %-10s %3d%%  %s", shortID(t.ID), t.Status, t.Progress, t.File.Name())
	if t.Error != "" {
		line += "  " + t.Error
	}
	a.printf("%s\n", line)
}

// Uploads lists upload tasks for one scope, or for every scope touched in
// this session.
func (a *App) Uploads(ctx context.Context, args []string) error {
	scopes := a.attachments.Scopes()
	if len(args) > 0 {
		scope, rest, err := parseScope(args)
		if err != nil || len(rest) > 0 {
			return usageError("uploads [<id> [c:<cid>]]")
		}
		scopes = []models.AttachmentScope{scope}
	}

	shown := 0
	for _, sc := range scopes {
		o, err := a.attachments.Uploader(ctx, sc)
		if err != nil {
			return err
		}
		tasks := o.Tasks()
		if len(tasks) == 0 && len(args) == 0 {
			continue
		}
		a.printf("%s: %s\n", sc, slotHint(o))
		for _, t := range tasks {
			a.printTask(t)
		}
		shown++
	}
	if shown == 0 {
		a.printf("No uploads.\n")
	}
	return nil
}

func (a *App) Retry(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("retry <task>")
	}
	o, t, err := a.attachments.FindTask(args[0])
	if err != nil {
		return err
	}
	t, err = o.Retry(t.ID)
	if err != nil {
		return err
	}
	a.printTask(t)
	return nil
}

func (a *App) Cancel(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("cancel <task>")
	}
	o, t, err := a.attachments.FindTask(args[0])
	if err != nil {
		return err
	}
	if err := o.Cancel(t.ID); err != nil {
		return err
	}
	a.printf("Cancelling %s\n", shortID(t.ID))
	return nil
}

func (a *App) Dismiss(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("dismiss <task>")
	}
	o, t, err := a.attachments.FindTask(args[0])
	if err != nil {
		return err
	}
	return o.Dismiss(t.ID)
}

func (a *App) Download(ctx context.Context, args []string) error {
	scope, rest, err := parseScope(args)
	if err != nil || len(rest) != 1 {
		return usageError("download <id> [c:<cid>] <aid>")
	}
	aid, err := parseID(rest[0])
	if err != nil {
		return err
	}

	path, err := a.attachments.Download(ctx, scope, aid, a.config.DownloadDir)
	if err != nil {
		return err
	}
	a.printf("Saved to %s\n", path)
	return nil
}

func (a *App) RemoveAttachment(ctx context.Context, args []string) error {
	scope, rest, err := parseScope(args)
	if err != nil || len(rest) != 1 {
		return usageError("rm-attachment <id> [c:<cid>] <aid>")
	}
	aid, err := parseID(rest[0])
	if err != nil {
		return err
	}
	if err := a.checkManage(ctx, scope); err != nil {
		return err
	}

	if err := a.attachments.Delete(ctx, scope, aid); err != nil {
		return err
	}
	a.printf("Deleted attachment %d\n", aid)
	return nil
}
