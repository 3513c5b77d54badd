package config

// A Profile is one named toolchain configuration.
type Profile struct {
	// CompilerPath is the dxc executable to run.
	CompilerPath string `toml:"compiler-path"`

	// TargetProfile is the default compilation target, e.g. "ps_6_0".
	TargetProfile string `toml:"target-profile"`

	// EntryPoint is the default entry function name.
	EntryPoint string `toml:"entry-point"`

	// ExtraArgs are appended to every compile invocation.
	ExtraArgs []string `toml:"extra-args"`
}
