package main

import (
	"fmt"

	"github.com/dronemap/footprints/internal/config"
	cli "gopkg.in/urfave/cli.v1"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "directory holding " + config.FileName,
	Value: ".",
}

var runFlags = []cli.Flag{
	cli.StringFlag{Name: "input, i", Usage: "input root searched for image folders"},
	cli.StringFlag{Name: "output, o", Usage: "output folder or s3://bucket/prefix"},
	cli.Float64Flag{Name: "height", Usage: "flight height above ground in metres, overrides EXIF"},
	cli.Float64Flag{Name: "pitch", Usage: "gimbal pitch in degrees within (-90, 0], overrides EXIF"},
	cli.Float64Flag{Name: "sensor-width", Usage: "sensor width in mm, requires --sensor-height"},
	cli.Float64Flag{Name: "sensor-height", Usage: "sensor height in mm, requires --sensor-width"},
	cli.BoolTFlag{Name: "keep-only-merged", Usage: "delete per-image artifacts once a shoot is merged"},
	cli.StringFlag{Name: "extractor", Usage: "metadata extractor: auto, exiftool or native"},
	configFlag,
}

var commands = cli.Commands{
	cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Compute footprints for every image folder under the input root",
		Flags:   runFlags,
		Action:  runAction,
	},
	cli.Command{
		Name:    "sensors",
		Aliases: []string{"s"},
		Usage:   "List the known camera models and sensor sizes",
		Flags:   []cli.Flag{configFlag},
		Action:  sensorsAction,
	},
	cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "Print the version number",
		Action:  versionAction,
	},
}

func createCliApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = "footprints"
	app.Usage = "Compute ground footprints of drone images"
	app.Version = Version
	app.Commands = commands
	return
}

func versionAction(c *cli.Context) error {
	_, err := fmt.Fprintln(c.App.Writer, Version)
	return err
}

func sensorsAction(c *cli.Context) error {
	if err := config.LoadOptional(c.String("config")); err != nil {
		return err
	}
	table, err := config.GetSensorTable()
	if err != nil {
		return err
	}

	for _, model := range table.Models() {
		size, _ := table.Lookup(model)
		if !size.Valid() {
			fmt.Fprintf(c.App.Writer, "%-16s unknown\n", model)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%-16s %.2f x %.2f mm\n", model, size.Width, size.Height)
	}
	return nil
}
