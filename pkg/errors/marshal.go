package errors

import (
	"context"
)

// Payload is the JSON form of an error, written by `gridpro --json` so that a
// host add-in can tell the failure kinds apart without parsing messages.
type Payload struct {
	Kind    string   `json:"kind"`
	Name    string   `json:"name,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Message string   `json:"message"`
	Context *Payload `json:"context,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Payload kinds.
const (
	KindLicense    = "LicenseError"
	KindNotFound   = "EmbeddedCodeError.NotFound"
	KindCorrupt    = "EmbeddedCodeError.Corrupt"
	KindPermission = "PermissionError"
	KindExecution  = "ExecutionError"
	KindTimeout    = "Timeout"
	KindContext    = "ContextError"
	KindFriendly   = "FriendlyError"
	KindError      = "Error"
)

// Marshal converts an error (that may contain the custom error types in this
// package) into a Payload that can be transmitted to the host and unmarshalled
// on the other side.
func Marshal(err error) *Payload {
	if err == nil {
		return nil
	}

	switch e := err.(type) {
	case *LicenseError:
		p := &Payload{Kind: KindLicense, Name: e.Feature, Reason: e.Required,
			Message: e.FriendlyMessage(), Text: e.Current}
		if e.Err != nil {
			p.Context = Marshal(e.Err)
		}
		return p
	case *EmbeddedCodeError:
		kind := KindNotFound
		if e.Kind == ErrCorrupt {
			kind = KindCorrupt
		}
		p := &Payload{Kind: kind, Name: e.Name, Message: e.FriendlyMessage()}
		if e.Err != nil {
			p.Text = e.Err.Error()
		}
		return p
	case *PermissionError:
		return &Payload{Kind: KindPermission, Name: e.Name, Reason: e.Reason, Message: e.FriendlyMessage()}
	case *TimeoutError:
		return &Payload{Kind: KindTimeout, Name: e.Name, Reason: e.Op, Message: e.FriendlyMessage()}
	case *ExecutionError:
		return &Payload{Kind: KindExecution, Name: e.Name,
			Message: GetPrintableMessage(e), Context: Marshal(e.Err)}
	}

	if contextErr, ok := err.(ContextError); ok {
		return &Payload{
			Kind:    KindContext,
			Reason:  contextErr.Context(),
			Message: GetPrintableMessage(err),
			Context: Marshal(contextErr.Cause()),
		}
	}

	if friendlyErr, ok := err.(FriendlyError); ok {
		return &Payload{Kind: KindFriendly, Message: friendlyErr.FriendlyMessage()}
	}

	return &Payload{Kind: KindError, Message: err.Error(), Text: err.Error()}
}

// Unmarshal reconstructs an error created by Marshal.
func Unmarshal(p *Payload) error {
	if p == nil {
		return nil
	}

	switch p.Kind {
	case KindLicense:
		return &LicenseError{Feature: p.Name, Required: p.Reason, Current: p.Text, Err: Unmarshal(p.Context)}
	case KindNotFound:
		return NotFound(p.Name)
	case KindCorrupt:
		var cause error
		if p.Text != "" {
			cause = New("%s", p.Text)
		}
		return Corrupt(p.Name, cause)
	case KindPermission:
		return &PermissionError{Name: p.Name, Reason: p.Reason}
	case KindTimeout:
		return &TimeoutError{Op: p.Reason, Name: p.Name, Err: context.DeadlineExceeded}
	case KindExecution:
		return &ExecutionError{Name: p.Name, Err: Unmarshal(p.Context)}
	case KindContext:
		return contextErrorImpl{
			err:     Unmarshal(p.Context),
			context: p.Reason,
		}
	case KindFriendly:
		return friendlyErrorImpl{message: p.Message}
	}

	return New("%s", p.Text)
}
