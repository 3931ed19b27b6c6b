package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
)

// ── Registry ──────────────────────────────────────────────────────────────────

func TestRegistry_HasAndShared(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("transient", container.Value(1)))
	require.NoError(t, c.Singleton("shared", container.Value(2)))
	c.Instance("instance", 3)

	tests := []struct {
		key    string
		has    bool
		shared bool
	}{
		{"transient", true, false},
		{"shared", true, true},
		{"instance", true, true},
		{"missing", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.has, c.Has(tt.key))
			assert.Equal(t, tt.shared, c.IsSingleton(tt.key))
		})
	}
}

func TestRegistry_NilConcreteRejected(t *testing.T) {
	c := container.New()
	assert.ErrorIs(t, c.Bind("a", nil), container.ErrInvalidConcrete)
	assert.ErrorIs(t, c.Bind("b", container.Factory(nil)), container.ErrInvalidConcrete)
	assert.ErrorIs(t, c.BindWhen("a", "b", nil), container.ErrInvalidConcrete)
	assert.False(t, c.Has("a"))
}

func TestRegistry_InstanceReplacesBinding(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("cfg", container.Value("old")))
	c.Instance("cfg", "new")

	_, bound := c.Binding("cfg")
	assert.False(t, bound)

	got, err := c.Make("cfg")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestRegistry_BindingReplacesSameNamedAlias(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Alias("Impl", "svc"))
	require.NoError(t, c.AssignAliasToGroup("svc", "services"))
	require.NoError(t, c.Bind("svc", container.Value("bound-value")))

	assert.False(t, c.IsAlias("svc"))
	assert.Empty(t, c.AliasGraph().AliasesInGroup("services"))
	assert.True(t, c.Has("svc"))
	got, err := c.Make("svc")
	require.NoError(t, err)
	assert.Equal(t, "bound-value", got)

	require.NoError(t, c.Alias("Impl", "cfg"))
	c.Instance("cfg", "instance-value")
	assert.False(t, c.IsAlias("cfg"))
	got, err = c.Make("cfg")
	require.NoError(t, err)
	assert.Equal(t, "instance-value", got)
}

func TestRegistry_HasAgreesWithMake(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("svc", container.Value(1)))
	require.NoError(t, c.Alias("Missing", "svc"))
	require.NoError(t, c.Alias("b", "a"))
	require.NoError(t, c.Alias("a", "b"))

	for _, key := range []string{"svc", "a", "b", "missing"} {
		_, err := c.Make(key)
		assert.Equal(t, err == nil, c.Has(key), key)
	}
}

func TestRegistry_ForgetRemovesEverything(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Singleton("Logger", loggerClass()))
	_, err := c.Make("Logger")
	require.NoError(t, err)

	c.Forget("Logger")
	assert.False(t, c.Has("Logger"))
	assert.False(t, c.Resolved("Logger"))
	assert.False(t, c.IsShared("Logger"))
}

func TestRegistry_BindingsSorted(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("zeta", container.Value(1)))
	require.NoError(t, c.Bind("alpha", container.Value(1)))

	assert.Equal(t, []string{"alpha", "zeta"}, c.Bindings())
}

func TestRegistry_BindRegistersClass(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("Logger", loggerClass()))
	assert.Contains(t, c.Classes(), "FileLogger")
}

func TestRegistry_Flush(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("a", container.Value(1)))
	require.NoError(t, c.Alias("a", "b"))
	c.Tag("t", "a")
	c.SetParameter("p", 1)

	c.Flush()

	assert.Empty(t, c.Bindings())
	assert.False(t, c.IsAlias("b"))
	assert.Empty(t, c.Tags())
	assert.Empty(t, c.Parameters())
	assert.True(t, c.Has("container"))
}

func TestRegistry_Parameters(t *testing.T) {
	c := container.New()
	c.SetParameter("app.name", "ioc")

	v, ok := c.Parameter("app.name")
	require.True(t, ok)
	assert.Equal(t, "ioc", v)

	_, ok = c.Parameter("missing")
	assert.False(t, ok)
}

// ── Tags ──────────────────────────────────────────────────────────────────────

func TestTagged_InOrder(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("A", container.Value("a")))
	require.NoError(t, c.Bind("B", container.Value("b")))
	c.Tag("core", "A", "B")
	c.Tag("core", "A")

	got, err := c.Tagged("core")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "a"}, got)
	assert.Equal(t, []string{"core"}, c.TagsFor("A"))
}

func TestTagged_AllOrNothing(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("A", container.Value("a")))
	c.Tag("core", "A", "B")

	got, err := c.Tagged("core")
	require.ErrorIs(t, err, container.ErrServiceNotFound)
	assert.Nil(t, got)
}

func TestTagged_UnknownTag(t *testing.T) {
	c := container.New()
	got, err := c.Tagged("nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// ── Explain ───────────────────────────────────────────────────────────────────

func TestExplain_BoundClass(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Singleton("Mailer", mailerClass()))
	require.NoError(t, c.Alias("Mailer", "mail"))
	require.NoError(t, c.When("Mailer").Needs("Logger").GiveValue(&FileLogger{}))
	c.Tag("outbound", "Mailer")
	c.AfterResolving("Mailer", func(any, container.Resolver) error { return nil })

	ex := c.Explain("mail")
	assert.Equal(t, "Mailer", ex.ResolvedTo)
	assert.True(t, ex.Bound)
	assert.Equal(t, container.KindClass, ex.Kind)
	assert.Equal(t, "Mailer", ex.Concrete)
	assert.True(t, ex.Shared)
	assert.False(t, ex.Resolved)
	assert.True(t, ex.HasHooks)
	assert.Equal(t, []string{"outbound"}, ex.Tags)
	assert.Equal(t, []string{"mail"}, ex.Aliases)
	assert.Equal(t, []string{"logger", "host", "port"}, ex.Dependencies)
	assert.Contains(t, ex.Contextual, "Logger")
}

func TestExplain_GlobalHooksCount(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("Mailer", mailerClass()))
	require.NoError(t, c.Bind("dsn", container.Value("sqlite://memory")))
	assert.False(t, c.Explain("Mailer").HasHooks)

	c.AfterResolvingAny(func(string, any) error { return nil })
	assert.True(t, c.Explain("Mailer").HasHooks)
	assert.False(t, c.Explain("dsn").HasHooks, "values never fire hooks")
}

func TestExplain_UnboundNeverFails(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Alias("b", "a"))
	require.NoError(t, c.Alias("a", "b"))

	assert.Equal(t, container.Explanation{Abstract: "missing", ResolvedTo: "missing"}, c.Explain("missing"))
	assert.False(t, c.Explain("a").Bound)
}

func TestExplain_Instance(t *testing.T) {
	c := container.New()
	c.Instance("port", 8080)

	ex := c.Explain("port")
	assert.True(t, ex.Bound)
	assert.True(t, ex.Resolved)
	assert.Equal(t, container.KindValue, ex.Kind)
	assert.Equal(t, "int", ex.Concrete)
}

func TestListDependencies(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Bind("Mailer", mailerClass()))
	require.NoError(t, c.Bind("dsn", container.Value("x")))
	c.Define(loggerClass())

	deps, err := c.ListDependencies("Mailer")
	require.NoError(t, err)
	assert.Equal(t, []string{"logger", "host", "port"}, deps)

	deps, err = c.ListDependencies("dsn")
	require.NoError(t, err)
	assert.Empty(t, deps)

	deps, err = c.ListDependencies("FileLogger")
	require.NoError(t, err)
	assert.Empty(t, deps)

	_, err = c.ListDependencies("missing")
	assert.ErrorIs(t, err, container.ErrServiceNotFound)
}
