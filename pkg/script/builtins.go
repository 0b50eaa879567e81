package script

import (
	"context"
	"errors"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/primatehaven/sanctuary/pkg/sanctuary"
)

const contextKey = "sanctuary.context"

// builtinFunc is the signature of a Starlark builtin.
type builtinFunc func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

func (r *Runner) builtins() starlark.StringDict {
	fns := map[string]builtinFunc{
		"intake":     r.intake,
		"medicate":   r.byName(r.keeper.Medicate),
		"move":       r.byName(r.keeper.MoveToEnclosure),
		"release":    r.byName(r.keeper.ReleaseFromEnclosure),
		"isolated":   r.listing(r.keeper.IsolationView),
		"enclosures": r.listing(r.keeper.EnclosureView),
		"roster":     r.listing(r.keeper.Roster),
		"find":       r.find,
		"stage":      r.stage,
		"attempt":    attempt,
	}

	out := make(starlark.StringDict, len(fns))
	for name, fn := range fns {
		out[name] = starlark.NewBuiltin(name, fn)
	}
	return out
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// intake(name, species, sex, size, weight, age, food)
func (r *Runner) intake(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, species, sex, food string
	var size, weight, age int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"species", &species,
		"sex", &sex,
		"size", &size,
		"weight", &weight,
		"age", &age,
		"food", &food,
	); err != nil {
		return nil, err
	}

	req := sanctuary.IntakeRequest{
		Name:   name,
		Size:   size,
		Weight: weight,
		Age:    age,
	}
	var err error
	if req.Species, err = sanctuary.ParseSpecies(species); err != nil {
		return nil, err
	}
	if req.Sex, err = sanctuary.ParseSex(sex); err != nil {
		return nil, err
	}
	if req.Food, err = sanctuary.ParseFood(food); err != nil {
		return nil, err
	}

	p, err := r.keeper.Admit(threadContext(thread), req)
	if err != nil {
		return nil, err
	}
	return primateValue(r.keeper.Registry(), p), nil
}

func (r *Runner) byName(op func(context.Context, string) (*sanctuary.Primate, error)) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		p, err := op(threadContext(thread), name)
		if err != nil {
			return nil, err
		}
		return primateValue(r.keeper.Registry(), p), nil
	}
}

func (r *Runner) listing(view func() []string) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		lines := view()
		list := make([]starlark.Value, len(lines))
		for i, l := range lines {
			list[i] = starlark.String(l)
		}
		return starlark.NewList(list), nil
	}
}

// find(name) returns the primate or None.
func (r *Runner) find(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	p, ok := r.keeper.Find(name)
	if !ok {
		return starlark.None, nil
	}
	return primateValue(r.keeper.Registry(), p), nil
}

// stage(name) returns the lifecycle stage, "untracked" for unknown names.
func (r *Runner) stage(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	p, _ := r.keeper.Find(name)
	return starlark.String(r.keeper.Registry().StageOf(p)), nil
}

// attempt(fn, *args, **kwargs) calls fn and returns None on success or the
// error class ("validation", "capacity", "precondition", "not_found") on a
// sanctuary error. Any other error propagates.
func attempt(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, errors.New("attempt: missing function argument")
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, errors.New("attempt: first argument must be callable, got " + args[0].Type())
	}

	_, err := starlark.Call(thread, fn, args[1:], kwargs)
	if err == nil {
		return starlark.None, nil
	}

	// EvalError unwraps to the error returned by the failing builtin.
	class := sanctuary.ClassOf(err)
	if class == "" {
		return nil, err
	}
	return starlark.String(class), nil
}

func primateValue(reg *sanctuary.Registry, p *sanctuary.Primate) starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("primate"), starlark.StringDict{
		"id":        starlark.String(p.ID().String()),
		"name":      starlark.String(p.Name()),
		"species":   starlark.String(p.Species()),
		"sex":       starlark.String(p.Sex()),
		"size":      starlark.MakeInt(p.Size()),
		"weight":    starlark.MakeInt(p.Weight()),
		"age":       starlark.MakeInt(p.Age()),
		"food":      starlark.String(p.Food()),
		"isolated":  starlark.Bool(p.Isolated()),
		"medicated": starlark.Bool(p.Medicated()),
		"stage":     starlark.String(reg.StageOf(p)),
	})
}
