package core

// Verticle is a deployable unit: a server, a bridge, a background worker.
// Start must not block; long-running loops belong in goroutines owned by the verticle.
type Verticle interface {
	Start(ctx FluxorContext) error
	Stop(ctx FluxorContext) error
}

// NamedVerticle is implemented by verticles that want a readable name in logs
type NamedVerticle interface {
	Verticle
	Name() string
}

func verticleName(v Verticle) string {
	if named, ok := v.(NamedVerticle); ok {
		return named.Name()
	}
	return "verticle"
}
