package variant

import (
	"github.com/broady/variant/variantgen/model"
	"github.com/broady/variant/variantgen/synth"
)

// Handler handles one case of a dispatch.
type Handler[R any] func(Value) R

// Matcher dispatches a Value to the handler of its active case. The
// handler set is checked against the union's closed case set once, in
// NewMatcher; Match itself only indexes by the active case.
type Matcher[R any] struct {
	u        *model.Union
	handlers []Handler[R]
}

// NewMatcher builds a dispatch over u. Every case needs a handler unless
// otherwise is non-nil, in which case it serves the cases left out. A nil
// handler counts as left out. Handlers for names u does not define are
// rejected.
func NewMatcher[R any](u *model.Union, handlers map[string]Handler[R], otherwise Handler[R]) (*Matcher[R], error) {
	names := make([]string, 0, len(handlers))
	for name, h := range handlers {
		if h != nil {
			names = append(names, name)
		} else if _, ok := u.Case(name); !ok {
			names = append(names, name)
		}
	}
	if err := synth.VerifyMatch(u, names, otherwise != nil); err != nil {
		return nil, err
	}

	m := &Matcher[R]{u: u, handlers: make([]Handler[R], u.Len())}
	for i := range m.handlers {
		h := handlers[u.CaseAt(i).Name]
		if h == nil {
			h = otherwise
		}
		m.handlers[i] = h
	}
	return m, nil
}

// MustMatcher is like NewMatcher but panics on error.
func MustMatcher[R any](u *model.Union, handlers map[string]Handler[R], otherwise Handler[R]) *Matcher[R] {
	m, err := NewMatcher(u, handlers, otherwise)
	if err != nil {
		panic(err)
	}
	return m
}

// Match calls the handler of v's active case and returns its result.
// It panics with an *Error of code CodeInvalidArgument when v belongs to
// another union or is the zero Value.
func (m *Matcher[R]) Match(v Value) R {
	if v.u != m.u {
		if v.u == nil {
			panic(Errorf(CodeInvalidArgument, "match on a zero Value"))
		}
		panic(Errorf(CodeInvalidArgument, "value of %s matched against %s", v.u.Name, m.u.Name))
	}
	return m.handlers[v.idx](v)
}
