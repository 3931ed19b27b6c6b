package metrics_test

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/metrics"
)

type clock struct{}

func newClock() *clock { return &clock{} }

func attached(t *testing.T) (*container.Container, *metrics.Collector) {
	t.Helper()
	c := container.New()
	m := metrics.NewCollector("ioc")
	m.Attach(c)
	return c, m
}

func TestAttach_CountsBindingsAndForgets(t *testing.T) {
	c, m := attached(t)

	require.NoError(t, c.Bind("Clock", container.MustClass("clock", newClock)))
	require.NoError(t, c.Singleton("Config", container.Value(map[string]string{})))
	c.Forget("Clock")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Bindings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Forgets))
}

func TestAttach_CountsResolutionsPerAbstract(t *testing.T) {
	c, m := attached(t)
	require.NoError(t, c.Bind("Clock", container.MustClass("clock", newClock)))
	require.NoError(t, c.Singleton("Shared", container.MustClass("shared", newClock)))
	require.NoError(t, c.Bind("Value", container.Value(1)))

	for range 3 {
		_, err := c.Make("Clock")
		require.NoError(t, err)
		_, err = c.Make("Shared")
		require.NoError(t, err)
		_, err = c.Make("Value")
		require.NoError(t, err)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("Clock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("Shared")), "cached after the first build")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("Value")))
}

func TestAttach_CountsAliasResolutions(t *testing.T) {
	c, m := attached(t)
	require.NoError(t, c.Bind("Clock", container.MustClass("clock", newClock)))
	require.NoError(t, c.Alias("Clock", "time"))

	_, err := c.Make("time")
	require.NoError(t, err)
	_, err = c.Make("Clock")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AliasResolutions))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&container.ServiceNotFoundError{Abstract: "x"}, "not_found"},
		{&container.CircularDependencyError{Chain: []string{"a", "a"}}, "circular_dependency"},
		{&container.CircularAliasError{Chain: []string{"a", "b", "a"}}, "circular_alias"},
		{&container.BindingResolutionError{Concrete: "x", Reason: "boom", Cause: &container.ServiceNotFoundError{Abstract: "y"}}, "binding_resolution"},
		{fmt.Errorf("import: %w", container.ErrInvalidState), "invalid_state"},
		{errors.New("disk full"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.Kind(tt.err))
		})
	}
}

func TestRecordError(t *testing.T) {
	c, m := attached(t)

	_, err := c.Make("Missing")
	m.RecordError(err)
	m.RecordError(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("not_found")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Errors))
}

func TestHandler(t *testing.T) {
	c, m := attached(t)
	require.NoError(t, c.Bind("Clock", container.MustClass("clock", newClock)))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ioc_bindings_total 1")
}
