// Package cli provides the interactive supportdesk command-line client.
//
// It wires configuration, the local session database, the API gateway, the
// services and an interactive REPL. Typical flow: restore a saved session or
// log in, browse and file support requests, and attach files to requests and
// comments while uploads run in the background.
//
// Key features:
//   - Login / Logout, with forced logout on any 401
//   - Requests: list, show, create, comment, delete, status, assign
//   - Attachments: attach, uploads, retry, cancel, dismiss, download, remove
//   - Admin: list users and replace their roles
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
