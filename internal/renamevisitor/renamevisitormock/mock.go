// Package renamevisitormock provides a deterministic, in-process
// renamevisitor.Visitor for tests, grounded on the teacher's
// llmcomplete.NewMockConversation: a caller-supplied function stands in for
// the network round-trip, so tests can assert exact batch/context contents
// without touching a real API.
package renamevisitormock

import "github.com/codalotl/jsrenamer/internal/renamevisitor"

type mockVisitor struct {
	fn func(names []string, context string) map[string]string
}

// New returns a Visitor whose Propose delegates to fn and never errors.
func New(fn func(names []string, context string) map[string]string) renamevisitor.Visitor {
	return &mockVisitor{fn: fn}
}

func (m *mockVisitor) Propose(names []string, context string) (map[string]string, error) {
	return m.fn(names, context), nil
}
