package cli

import (
	"context"
	"errors"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

// mockBuilder is a test double for the build pipeline.
type mockBuilder struct {
	report    *driving.BuildReport
	err       error
	lastReset bool
}

func (m *mockBuilder) BuildOrRefresh(_ context.Context, reset bool) (*driving.BuildReport, error) {
	m.lastReset = reset
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

// mockAnswerer is a test double for the answer pipeline.
type mockAnswerer struct {
	answer *domain.Answer
	err    error
	lastK  int
}

func (m *mockAnswerer) Ask(_ context.Context, _ string, k int) (*domain.Answer, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// setupTestServices injects mocks and returns a cleanup function.
// Both services are always populated so command execution never falls
// through to real wiring.
func setupTestServices(builder *mockBuilder, answerer *mockAnswerer) func() {
	if builder == nil {
		builder = &mockBuilder{report: &driving.BuildReport{}}
	}
	if answerer == nil {
		answerer = &mockAnswerer{answer: &domain.Answer{Text: domain.Refusal}}
	}
	oldBuilder := builderService
	oldAnswerer := answerService
	builderService = builder
	answerService = answerer
	return func() {
		builderService = oldBuilder
		answerService = oldAnswerer
	}
}

var errServiceDown = errors.New("service down")
