package chatsession

import (
	"context"
	"fmt"
)

// Command is one user intent against a Store. The set is closed; Dispatch
// handles every variant.
type Command interface {
	command()
}

type (
	LoadSessionsCmd  struct{ OwnerID string }
	CreateSessionCmd struct{ OwnerID string }
	SelectSessionCmd struct{ SessionID string }
	RenameSessionCmd struct{ SessionID, Title string }
	ToggleStarCmd    struct{ SessionID string }
	DeleteSessionCmd struct {
		SessionID string
		Confirmed bool
	}
	AppendMessageCmd struct{ SessionID, Text string }
	ClearSessionsCmd struct{ Confirmed bool }
	SyncSessionCmd   struct{ SessionID string }
)

func (LoadSessionsCmd) command()  {}
func (CreateSessionCmd) command() {}
func (SelectSessionCmd) command() {}
func (RenameSessionCmd) command() {}
func (ToggleStarCmd) command()    {}
func (DeleteSessionCmd) command() {}
func (AppendMessageCmd) command() {}
func (ClearSessionsCmd) command() {}
func (SyncSessionCmd) command()   {}

// RequiresConfirmation reports whether cmd destroys data and must carry
// Confirmed before Dispatch runs it.
func RequiresConfirmation(cmd Command) bool {
	switch cmd.(type) {
	case DeleteSessionCmd, ClearSessionsCmd:
		return true
	}
	return false
}

// Result is what Dispatch returns: the affected session, the append outcome
// for AppendMessageCmd, and the state after the command.
type Result struct {
	SessionID string        `json:"sessionId,omitempty"`
	Starred   *bool         `json:"starred,omitempty"`
	Append    *AppendResult `json:"append,omitempty"`
	Snapshot  Snapshot      `json:"snapshot"`
}

func (s *Store) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	var (
		res Result
		err error
	)
	switch c := cmd.(type) {
	case LoadSessionsCmd:
		err = s.LoadSessions(ctx, c.OwnerID)
	case CreateSessionCmd:
		res.SessionID, err = s.CreateSession(ctx, c.OwnerID)
	case SelectSessionCmd:
		res.SessionID = c.SessionID
		err = s.SelectSession(c.SessionID)
	case RenameSessionCmd:
		res.SessionID = c.SessionID
		err = s.RenameSession(ctx, c.SessionID, c.Title)
	case ToggleStarCmd:
		res.SessionID = c.SessionID
		var starred bool
		starred, err = s.ToggleStar(ctx, c.SessionID)
		if err == nil {
			res.Starred = &starred
		}
	case DeleteSessionCmd:
		res.SessionID = c.SessionID
		if !c.Confirmed {
			return res, opErr("delete", c.SessionID, ErrConfirmationRequired, nil)
		}
		err = s.DeleteSession(ctx, c.SessionID)
	case AppendMessageCmd:
		res.SessionID = c.SessionID
		var ar AppendResult
		ar, err = s.AppendMessage(ctx, c.SessionID, c.Text)
		if ar.UserMessage.ID != "" {
			res.Append = &ar
		}
	case ClearSessionsCmd:
		if !c.Confirmed {
			return res, opErr("clear", "", ErrConfirmationRequired, nil)
		}
		err = s.ClearSessions(ctx)
	case SyncSessionCmd:
		res.SessionID = c.SessionID
		err = s.SyncSession(ctx, c.SessionID)
	default:
		return res, fmt.Errorf("unsupported command %T", cmd)
	}
	res.Snapshot = s.Snapshot()
	return res, err
}
