package duel

import "context"

// Directory is an external index of live join codes, shared between server
// instances. The in-process map is authoritative for session state; the
// directory only arbitrates code ownership and lists open lobbies.
type Directory interface {
	// Reserve claims code for creator. false means another owner holds it.
	Reserve(ctx context.Context, code, creator string) (bool, error)
	// MarkStarted drops code from the open-lobby listing.
	MarkStarted(ctx context.Context, code string) error
	// Release forgets code entirely.
	Release(ctx context.Context, code string) error
}

type localDirectory struct{}

func (localDirectory) Reserve(context.Context, string, string) (bool, error) { return true, nil }
func (localDirectory) MarkStarted(context.Context, string) error             { return nil }
func (localDirectory) Release(context.Context, string) error                 { return nil }
