package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error

	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Create(ctx context.Context) error
	Comment(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	DeleteComment(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Assign(ctx context.Context, args []string) error
	Users(ctx context.Context) error

	Attach(ctx context.Context, args []string) error
	Uploads(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error
	Cancel(ctx context.Context, args []string) error
	Dismiss(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	RemoveAttachment(ctx context.Context, args []string) error

	AdminUsers(ctx context.Context) error
	Roles(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: login, help, exit"
	helpLoggedIn  = `Available commands:
  whoami, logout, exit
  list [STATUS]                      show <id>
  create                             comment <id>
  delete <id>                        delete-comment <id> <cid>
  status <id> <STATUS>               assign <id> <uid>
  users
  attach <id> [c:<cid>] <paths...>   uploads [<id> [c:<cid>]]
  retry <task>   cancel <task>   dismiss <task>
  download <id> [c:<cid>] <aid>      rm-attachment <id> [c:<cid>] <aid>
  admin-users                        roles <uid> ROLE[,ROLE]`
)

// runREPL starts a simple read–eval–print loop for the supportdesk CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Errors returned by a command are printed and
// the loop continues. The loop exits on EOF or when the user types "exit" or
// "quit". While logged out only help, login and exit are accepted.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sd %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if isKnown(cmd) {
			printlnFn("Please log in first.")
		} else {
			printlnFn("Unknown command:", cmd)
		}
		return nil
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "l", "list":
		return a.List(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "create":
		return a.Create(ctx)
	case "comment":
		return a.Comment(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "delete-comment":
		return a.DeleteComment(ctx, args)
	case "status":
		return a.Status(ctx, args)
	case "assign":
		return a.Assign(ctx, args)
	case "users":
		return a.Users(ctx)
	case "attach":
		return a.Attach(ctx, args)
	case "uploads":
		return a.Uploads(ctx, args)
	case "retry":
		return a.Retry(ctx, args)
	case "cancel":
		return a.Cancel(ctx, args)
	case "dismiss":
		return a.Dismiss(ctx, args)
	case "download":
		return a.Download(ctx, args)
	case "rm-attachment":
		return a.RemoveAttachment(ctx, args)
	case "admin-users":
		return a.AdminUsers(ctx)
	case "roles":
		return a.Roles(ctx, args)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}

var knownCommands = map[string]struct{}{
	"logout": {}, "whoami": {}, "l": {}, "list": {}, "show": {}, "create": {},
	"comment": {}, "delete": {}, "delete-comment": {}, "status": {}, "assign": {},
	"users": {}, "attach": {}, "uploads": {}, "retry": {}, "cancel": {},
	"dismiss": {}, "download": {}, "rm-attachment": {}, "admin-users": {}, "roles": {},
}

func isKnown(cmd string) bool {
	_, ok := knownCommands[cmd]
	return ok
}
