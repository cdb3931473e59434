// Package models defines the client-side shapes of the supportdesk REST API:
// users and roles, support requests and comments, attachments and the
// pre-signed URLs used to move their bytes.
package models
