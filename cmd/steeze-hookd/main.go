package main

import (
	"github.com/joeydtaylor/steeze-hook/pkg/serverfx"
	"go.uber.org/fx"

	_ "github.com/joeydtaylor/steeze-hook/pkg/plugins/admit"
	_ "github.com/joeydtaylor/steeze-hook/pkg/plugins/jwtgate"
	_ "github.com/joeydtaylor/steeze-hook/pkg/plugins/remap"
	_ "github.com/joeydtaylor/steeze-hook/pkg/plugins/txnlog"
)

func main() {
	fx.New(
		serverfx.Module(
			serverfx.WithService("steeze-hookd"),
			serverfx.WithManifestEnv("HOOKD_MANIFEST"),
			serverfx.WithDefaultManifest("manifest.toml"),
		),
	).Run()
}
