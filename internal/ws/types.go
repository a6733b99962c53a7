package ws

import (
	"context"

	"somniadash/internal/dashboard"
)

// Message types
const (
	TypeUpdate  = "update"
	TypeRefresh = "refresh"
	TypeError   = "error"
)

// OutMessage is sent to clients
type OutMessage struct {
	Type  string `json:"type"`
	View  string `json:"view,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// InMessage is received from clients
type InMessage struct {
	Type string `json:"type"`
	View string `json:"view"`
}

// Source provides view snapshots and update notifications
type Source interface {
	Snapshots() []dashboard.State
	Subscribe() (<-chan dashboard.Update, func())
	Refresh(ctx context.Context, name string) (dashboard.State, error)
}

func updateMessage(st dashboard.State) OutMessage {
	return OutMessage{Type: TypeUpdate, View: st.View, Data: st}
}
