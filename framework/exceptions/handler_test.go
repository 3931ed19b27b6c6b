package exceptions_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/exceptions"
)

func notFound() error {
	return fmt.Errorf("boot: %w", &container.ServiceNotFoundError{Abstract: "Mailer"})
}

func TestRender_PerEnvironment(t *testing.T) {
	err := notFound()

	tests := []struct {
		env  string
		want map[string]string
	}{
		{"production", map[string]string{
			"message": "An error occurred: " + err.Error(),
			"kind":    "Error kind: not_found",
		}},
		{"local", map[string]string{
			"message": "Development error: " + err.Error(),
			"kind":    "Error kind: not_found",
			"trace":   "Error chain: " + err.Error() + " <- " + errors.Unwrap(err).Error() + " <- " + container.ErrServiceNotFound.Error(),
		}},
		{"staging", map[string]string{
			"message": "An error occurred: " + err.Error(),
			"kind":    "Error kind: not_found",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			report := exceptions.New(tt.env, true).Render(err)
			assert.Equal(t, "error", report.Status)
			assert.Equal(t, tt.want, report.Error)
		})
	}
}

func TestRender_HiddenDetails(t *testing.T) {
	report := exceptions.New("local", false).Render(notFound())
	assert.Equal(t, exceptions.Report{Status: "error"}, report)
}

func TestWithFormats_ReplacesOneEnvironment(t *testing.T) {
	h := exceptions.New("testing", true, exceptions.WithFormats(map[string]exceptions.Format{
		"testing": {"detail": ":kind/:message"},
	}))

	report := h.Render(errors.New("boom"))
	assert.Equal(t, map[string]string{"detail": "other/boom"}, report.Error)

	report = exceptions.New("production", true, exceptions.WithFormats(map[string]exceptions.Format{
		"testing": {"detail": ":kind"},
	})).Render(errors.New("boom"))
	assert.Equal(t, "An error occurred: boom", report.Error["message"])
}

func TestHandle_Logs(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := exceptions.New("production", true, exceptions.WithLogger(zap.New(core)))

	report := h.Handle(&container.CircularDependencyError{Chain: []string{"A", "B", "A"}})
	assert.Equal(t, "Error kind: circular_dependency", report.Error["kind"])

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "A -> B -> A")
	assert.Equal(t, "circular_dependency", entry.ContextMap()["kind"])
	assert.Equal(t, "production", entry.ContextMap()["env"])
}

func TestChain(t *testing.T) {
	cause := errors.New("disk full")
	err := &container.BindingResolutionError{Concrete: "Mailer", Reason: "constructor failed", Cause: cause}

	assert.Equal(t, []string{err.Error(), "disk full"}, exceptions.Chain(err))
	assert.Nil(t, exceptions.Chain(nil))
}
