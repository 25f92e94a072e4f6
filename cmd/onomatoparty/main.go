package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the game server"`
	Decks   DecksCmd         `cmd:"" help:"List the card decks under the assets root"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("onomatoparty"),
		kong.Description("Real-time onomatopoeia party game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
