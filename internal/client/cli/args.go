package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
)

// usageError is returned when a command is called with the wrong arguments.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseScope reads "<id> [c:<cid>]" from the front of args and returns the
// rest.
func parseScope(args []string) (models.AttachmentScope, []string, error) {
	if len(args) == 0 {
		return models.AttachmentScope{}, nil, fmt.Errorf("request id is required")
	}
	rid, err := parseID(args[0])
	if err != nil {
		return models.AttachmentScope{}, nil, err
	}
	rest := args[1:]

	if len(rest) > 0 {
		if raw, ok := strings.CutPrefix(rest[0], "c:"); ok {
			cid, err := parseID(raw)
			if err != nil {
				return models.AttachmentScope{}, nil, err
			}
			return models.CommentScope(rid, cid), rest[1:], nil
		}
	}
	return models.RequestScope(rid), rest, nil
}

// parseRoles reads a comma-separated role list.
func parseRoles(s string) ([]models.Role, error) {
	var out []models.Role
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, ok := models.ParseRole(part)
		if !ok {
			return nil, fmt.Errorf("unknown role %q", part)
		}
		out = append(out, r)
	}
	return out, nil
}
