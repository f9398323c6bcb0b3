// Package hooking lets tracers watch a translation step by step. The
// translator reports each step at a named position and every registered
// hook sees it, so recording and counting stay out of the translation code.
package hooking

import "slices"

// HookPos names a step at which hooks run, such as a TLB lookup or a page
// replacement.
type HookPos struct {
	Name string
}

// HookCtx describes one step. Domain is the component that ran the step,
// Item is the access being translated, and Detail carries data specific to
// Pos, for example the evicted page.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable is implemented by components that report their steps.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// A Hook reacts to the steps reported by a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase keeps the hooks of a component. Embed it to implement
// Hookable.
type HookableBase struct {
	hooks []Hook
}

func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook adds a hook. It panics if the same hook is added twice, as the
// hook would then count every step twice.
func (h *HookableBase) AcceptHook(hook Hook) {
	if slices.Contains(h.hooks, hook) {
		panic("hook already registered")
	}

	h.hooks = append(h.hooks, hook)
}

// InvokeHook reports a step to the hooks in the order they were added.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
