package kernel

import "errors"

// ErrEmptyMessage is returned by Send when the message has no content.
var ErrEmptyMessage = errors.New("message is empty")

// ErrNoDocument is returned by operations that need an active document.
var ErrNoDocument = errors.New("no active document")
