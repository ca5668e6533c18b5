package cmd

import (
	"fmt"
	"os"
	App "filebrowser/app"

	_ "filebrowser/pkg/storage/embedded"
	_ "filebrowser/pkg/storage/gcs"
	_ "filebrowser/pkg/storage/local"
	_ "filebrowser/pkg/storage/s3"

	"github.com/urfave/cli"
)

func Execute(name, usage, version, commit string) {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Version = version
	if commit != "" {
		app.Version = fmt.Sprintf("%s (%s)", version, commit)
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config, c",
			Value: "config.yaml",
			Usage: "Configuration file path",
		},
		&cli.StringFlag{
			Name:  "listen, l",
			Value: ":8080",
			Usage: "Listen address",
		},
		&cli.StringFlag{
			Name:  "storage, s",
			Value: "local",
			Usage: "Storage backend (local, mindb, s3, gcs)",
		},
		&cli.StringFlag{
			Name:  "root, r",
			Value: "./media",
			Usage: "Local media root or mindb data path",
		},
		&cli.StringFlag{
			Name:  "media-url",
			Value: "/media/",
			Usage: "Public URL prefix for stored files",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug mode",
		},
	}
	app.Action = App.Run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
