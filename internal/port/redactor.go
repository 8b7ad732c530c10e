package port

import "context"

// Redactor strips personally identifying text before a payload leaves the process.
type Redactor interface {
	Redact(ctx context.Context, text string) (string, error)
}
