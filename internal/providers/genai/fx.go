package genai

import "go.uber.org/fx"

var Module = fx.Module("providers.genai",
	fx.Provide(
		fx.Annotate(NewClient, fx.As(new(Provider))),
	),
)
