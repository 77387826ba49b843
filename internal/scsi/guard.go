package scsi

import (
	"context"
	"sync/atomic"
)

// Guard wraps a transport so that no command reaches the device once ctx is
// done. It also counts issued commands.
type Guard struct {
	ctx    context.Context
	next   Transport
	issued atomic.Int64
}

// NewGuard returns a Guard bound to ctx.
func NewGuard(ctx context.Context, next Transport) *Guard {
	return &Guard{ctx: ctx, next: next}
}

// Issue forwards cmd unless the bound context or the call context is done.
func (g *Guard) Issue(ctx context.Context, cmd *Command) (int, error) {
	if err := g.ctx.Err(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.issued.Add(1)
	n, err := g.next.Issue(ctx, cmd)
	if err != nil {
		return n, err
	}
	if cerr := g.ctx.Err(); cerr != nil {
		return n, cerr
	}
	return n, nil
}

// Issued returns how many commands were forwarded.
func (g *Guard) Issued() int64 {
	return g.issued.Load()
}
