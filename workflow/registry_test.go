package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/247void/twitterScraper/types"
)

func echoAction(name string, specs ...ParamSpec) (Action, *Params) {
	var seen Params
	return Action{
		Name:   name,
		Params: specs,
		Handler: func(_ context.Context, p Params) (Result, error) {
			seen = p
			return Bool(true), nil
		},
	}, &seen
}

func TestRegistry_DispatchFiltersParams(t *testing.T) {
	r := NewRegistry(nil)
	a, seen := echoAction("fetch_following",
		ParamSpec{Name: "account", Kind: KindString},
		ParamSpec{Name: "deep_crawl", Kind: KindBool},
	)
	require.NoError(t, r.Register(a))

	res, err := r.Dispatch(context.Background(), Step{
		Action: "fetch_following",
		Params: Params{"account": "alice", "deep_crawl": true, "comment": "extra metadata"},
	})
	require.NoError(t, err)
	ok, _ := res.AsBool()
	assert.True(t, ok)
	assert.Equal(t, Params{"account": "alice", "deep_crawl": true}, *seen)
}

func TestRegistry_DispatchUnknownAction(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Dispatch(context.Background(), Step{Action: "nope"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAction, types.GetErrorCode(err))
	assert.True(t, types.IsFatal(err))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)
	a, _ := echoAction("a")
	require.NoError(t, r.Register(a))
	assert.Error(t, r.Register(a), "duplicate")
	assert.Error(t, r.Register(Action{Name: "b"}), "missing handler")
	assert.Error(t, r.Register(Action{Handler: a.Handler}), "missing name")

	b, _ := echoAction("b")
	r.MustRegister(b)
	assert.Equal(t, []string{"a", "b"}, r.Names())
	assert.Panics(t, func() { r.MustRegister(b) })
}

func validationWorkflow(params Params) *Workflow {
	return &Workflow{
		Name:       "test",
		EntryPoint: "start",
		Steps: map[string]Step{
			"start": {Action: "fetch_timeline", Params: params, NextSteps: []string{"start"}},
		},
	}
}

func TestRegistry_Validate(t *testing.T) {
	newRegistry := func(opts ...RegistryOption) *Registry {
		r := NewRegistry(nil, opts...)
		a, _ := echoAction("fetch_timeline", ParamSpec{Name: "max_pages", Kind: KindInt})
		r.MustRegister(a)
		return r
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, newRegistry().Validate(validationWorkflow(Params{"max_pages": 5})))
	})

	t.Run("kind mismatch", func(t *testing.T) {
		err := newRegistry().Validate(validationWorkflow(Params{"max_pages": "five"}))
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidWorkflow, types.GetErrorCode(err))
		assert.Contains(t, err.Error(), "max_pages")
	})

	t.Run("unknown param strict", func(t *testing.T) {
		err := newRegistry().Validate(validationWorkflow(Params{"max_page": 5}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no parameter "max_page"`)
	})

	t.Run("unknown param lenient warns", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		r := NewRegistry(zap.New(core), WithStrictParams(false))
		a, _ := echoAction("fetch_timeline", ParamSpec{Name: "max_pages", Kind: KindInt})
		r.MustRegister(a)

		assert.NoError(t, r.Validate(validationWorkflow(Params{"max_page": 5})))
		assert.Equal(t, 1, logs.FilterMessage("unknown step parameter dropped").Len())
	})

	t.Run("unknown action", func(t *testing.T) {
		wf := validationWorkflow(nil)
		wf.Steps["start"] = Step{Action: "fetch_everything", NextSteps: []string{"start"}}
		err := newRegistry().Validate(wf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch_everything")
	})

	t.Run("broken graph", func(t *testing.T) {
		wf := validationWorkflow(nil)
		wf.EntryPoint = "missing"
		assert.Error(t, newRegistry().Validate(wf))
	})
}
