package container_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
)

func TestScope_OverrideInsideOnly(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("user", container.Value("guest")))

	err := c.Scope("request", func(c *container.Container) error {
		require.NoError(t, c.BindInScope("user", container.Value("ada"), "request"))
		got, err := c.Make("user")
		require.NoError(t, err)
		assert.Equal(t, "ada", got)
		return nil
	})
	require.NoError(t, err)

	got, err := c.Make("user")
	require.NoError(t, err)
	assert.Equal(t, "guest", got)
	assert.False(t, c.HasScope("request"))
}

func TestScope_TornDownOnError(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("user", container.Value("guest")))

	err := c.Scope("request", func(c *container.Container) error {
		require.NoError(t, c.BindInScope("user", container.Value("ada"), "request"))
		return errBroken
	})
	require.ErrorIs(t, err, errBroken)

	got, err := c.Make("user")
	require.NoError(t, err)
	assert.Equal(t, "guest", got)
	assert.Empty(t, c.ActiveScopes())
}

func TestScope_TornDownOnPanic(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("user", container.Value("guest")))

	assert.Panics(t, func() {
		_ = c.Scope("request", func(c *container.Container) error {
			_ = c.BindInScope("user", container.Value("ada"), "request")
			panic("boom")
		})
	})

	got, err := c.Make("user")
	require.NoError(t, err)
	assert.Equal(t, "guest", got)
	assert.False(t, c.HasScope("request"))
}

func TestScope_NestedLookupInnermostFirst(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("tenant", container.Value("global")))
	require.NoError(t, c.Bind("region", container.Value("global")))

	err := c.Scope("outer", func(c *container.Container) error {
		require.NoError(t, c.BindInScope("tenant", container.Value("outer"), "outer"))
		require.NoError(t, c.BindInScope("region", container.Value("eu"), "outer"))

		return c.Scope("inner", func(c *container.Container) error {
			require.NoError(t, c.BindInScope("tenant", container.Value("inner"), "inner"))
			assert.Equal(t, []string{"outer", "inner"}, c.ActiveScopes())

			tenant, err := c.Make("tenant")
			require.NoError(t, err)
			region, err := c.Make("region")
			require.NoError(t, err)
			assert.Equal(t, "inner", tenant)
			assert.Equal(t, "eu", region)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestScope_SameNameNestedRejected(t *testing.T) {
	c := container.New()
	err := c.Scope("request", func(c *container.Container) error {
		return c.Scope("request", func(*container.Container) error { return nil })
	})
	assert.ErrorIs(t, err, container.ErrScopeActive)
}

func TestScope_BuildsAreNotCached(t *testing.T) {
	c := container.New()
	calls := 0
	err := c.Scope("job", func(c *container.Container) error {
		require.NoError(t, c.BindInScope("logger", counter(&calls), "job"))
		first, err := c.Make("logger")
		require.NoError(t, err)
		second, err := c.Make("logger")
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.False(t, c.Resolved("logger"))
}

func TestScope_Retain(t *testing.T) {
	c := container.New()
	err := c.Scope("batch", func(c *container.Container) error {
		require.NoError(t, c.BindInScope("size", container.Value(100), "batch"))
		return c.RetainScope("batch")
	})
	require.NoError(t, err)

	require.True(t, c.HasScope("batch"))
	assert.Equal(t, []string{"size"}, c.ScopedBindings("batch"))

	got, err := c.ResolveInScope("size", "batch")
	require.NoError(t, err)
	assert.Equal(t, 100, got)

	_, err = c.Make("size")
	assert.ErrorIs(t, err, container.ErrServiceNotFound, "retained but inactive scopes do not override Make")

	c.ForgetScope("batch")
	assert.False(t, c.HasScope("batch"))
}

func TestScope_BindIntoMissingScope(t *testing.T) {
	c := container.New()
	assert.ErrorIs(t, c.BindInScope("user", container.Value("ada"), "nope"), container.ErrScopeNotFound)
	assert.ErrorIs(t, c.RetainScope("nope"), container.ErrScopeNotFound)
}

func TestScope_ResolveInScopeFallsBack(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("user", container.Value("guest")))
	c.BeginScope("preview")

	got, err := c.ResolveInScope("user", "preview")
	require.NoError(t, err)
	assert.Equal(t, "guest", got)
}

func TestSandbox(t *testing.T) {
	c := container.New()
	var name string
	err := c.Sandbox(func(c *container.Container) error {
		scopes := c.ActiveScopes()
		require.Len(t, scopes, 1)
		name = scopes[0]
		return c.BindInScope("user", container.Value("tmp"), name)
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "sandbox-"))
	assert.False(t, c.HasScope(name))
}
