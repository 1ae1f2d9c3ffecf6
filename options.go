package resettable

type config struct {
	resetOnInit bool
	onReset     func()
}

// Option configures a workspace at construction time. Options are
// shared by [NewCell], [NewMutex], and [NewRWMutex].
type Option func(*config)

func defaultConfig() config {
	return config{}
}

// WithResetOnInit applies the reset function to the initial value
// before the workspace is first used, so the baseline state is
// established by the reset function itself rather than by the caller.
func WithResetOnInit() Option {
	return func(c *config) {
		c.resetOnInit = true
	}
}

// WithOnReset registers a hook invoked after every reset-function
// invocation, on any path (guard release, direct reset, or
// construction with [WithResetOnInit]).
//
// The hook runs while exclusive access to the value is still held, so
// it must not acquire the same workspace.
func WithOnReset(fn func()) Option {
	return func(c *config) {
		c.onReset = fn
	}
}
