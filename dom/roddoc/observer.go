package roddoc

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
)

const bindingName = "__shopoverlay_binding"

//go:embed observer.js
var observerJS string

// Mutations injects a MutationObserver that reports added element subtrees
// through a CDP runtime binding. Overlay nodes the engine appends itself
// are ignored by the page script. The channel closes when ctx ends.
func (d *Document) Mutations(ctx context.Context) (<-chan struct{}, error) {
	return d.observe(ctx, observerJS)
}

// observe subscribes to binding calls, then runs script. If the script
// fails the subscription is torn down before observe returns.
func (d *Document) observe(ctx context.Context, script string) (<-chan struct{}, error) {
	subCtx, cancel := context.WithCancel(ctx)
	page := d.page.Context(subCtx)

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		cancel()
		return nil, fmt.Errorf("roddoc: add binding: %w", err)
	}

	out := make(chan struct{}, 1)
	wait := page.EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		select {
		case out <- struct{}{}:
		default:
			// a signal is already pending; coalesce
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		defer cancel()
		wait()
	}()

	if _, err := page.Eval(`() => {` + script + `}`); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("roddoc: inject observer: %w", err)
	}
	return out, nil
}
