package main

import (
	"context"
	"image/color"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bodgit/sigil"
	"github.com/bodgit/sigil/cache"
	"github.com/bodgit/sigil/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level := zerolog.InfoLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func themeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "rows",
			Value: sigil.DefaultRows,
			Usage: "grid dimension",
		},
		&cli.StringFlag{
			Name:  "axis",
			Value: "vertical",
			Usage: "mirror axis: vertical, horizontal or both",
		},
		&cli.StringSliceFlag{
			Name:  "fg",
			Usage: "foreground color as #rrggbb, repeatable",
		},
		&cli.StringFlag{
			Name:  "bg",
			Usage: "background color as #rrggbb",
		},
	}
}

func themeFromFlags(c *cli.Context) (sigil.Theme, error) {
	theme := sigil.DefaultTheme()
	theme.Rows = c.Int("rows")

	axis, err := sigil.ParseAxis(c.String("axis"))
	if err != nil {
		return sigil.Theme{}, err
	}
	theme.Axis = axis

	if fgs := c.StringSlice("fg"); len(fgs) > 0 {
		palette := make([]color.NRGBA, 0, len(fgs))
		for _, v := range fgs {
			fg, err := sigil.ParseColor(v)
			if err != nil {
				return sigil.Theme{}, err
			}
			palette = append(palette, fg)
		}
		theme.Foreground = palette
	}

	if v := c.String("bg"); v != "" {
		bg, err := sigil.ParseColor(v)
		if err != nil {
			return sigil.Theme{}, err
		}
		theme.Background = bg
	}

	return theme, nil
}

// ensureOutDir creates out when several identifiers make it a
// directory. A single identifier names a file and nothing is made.
func ensureOutDir(out string, args int) error {
	if out == "" || out == "-" || args < 2 {
		return nil
	}
	return os.MkdirAll(out, 0o755)
}

// outputFile decides where a rendered identifier lands. A single
// identifier with an explicit out path gets exactly that path unless it
// is a directory; everything else gets a filename derived from the
// identifier.
func outputFile(out, identifier string, args int) string {
	if out == "" {
		return sigil.Filename(identifier)
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, sigil.Filename(identifier))
	}
	if args == 1 {
		return out
	}
	return filepath.Join(out, sigil.Filename(identifier))
}

func generate(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	logger := newLogger(c)

	theme, err := themeFromFlags(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if c.Bool("padded") {
		theme.QuietZone = sigil.QuietZoneCell
	} else {
		theme.QuietZone = c.Int("quiet-zone")
	}

	if contrast := theme.MinContrast(); contrast < 0.1 {
		logger.Warn().Float64("contrast", contrast).Msg("foreground is hard to tell from the background")
	}

	size := c.Int("size")
	out := c.String("out")

	if c.Args().First() == "-" {
		if out == "-" {
			return cli.Exit("cannot write a batch to stdout", 1)
		}
		if out == "" {
			out = "."
		}

		b, err := sigil.NewBatch(theme, size, c.Bool("inverted"), logger)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := b.Run(c.Context, os.Stdin, out); err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	}

	if err := ensureOutDir(out, c.NArg()); err != nil {
		return cli.Exit(err, 1)
	}

	for _, identifier := range c.Args().Slice() {
		sg, err := sigil.Generate(theme, []byte(identifier))
		if err != nil {
			return cli.Exit(err, 1)
		}
		if c.Bool("inverted") {
			sg = sg.Invert()
		}

		img, err := sg.PNG(size)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if out == "-" {
			if _, err := os.Stdout.Write(img); err != nil {
				return cli.Exit(err, 1)
			}
			continue
		}

		file := outputFile(out, identifier, c.NArg())
		if err := os.WriteFile(file, img, 0o644); err != nil {
			return cli.Exit(err, 1)
		}
		logger.Debug().Str("identifier", identifier).Str("file", file).Msg("wrote")
	}

	return nil
}

func serve(c *cli.Context) error {
	logger := newLogger(c)

	theme, err := themeFromFlags(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	cfg := server.Config{
		Theme:        theme,
		DefaultWidth: c.Int("width"),
		MaxWidth:     c.Int("max-width"),
		Logger:       logger,
	}

	if file := c.String("db"); file != "" {
		db, err := cache.New(file)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer db.Close()
		cfg.Cache = db
	}

	srv, err := server.New(cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}

	addr := net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port")))
	hs := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- hs.ListenAndServe()
	}()
	logger.Info().Str("addr", addr).Msg("listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return cli.Exit(err, 1)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "sigil"
	app.Usage = "deterministic identicon generator"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "generate",
			Usage:       "Render identicons to PNG files",
			Description: `Each IDENTIFIER renders to its own file. A single "-" instead reads newline separated identifiers from standard input and renders them concurrently.`,
			ArgsUsage:   "IDENTIFIER...",
			Flags: append(themeFlags(),
				&cli.IntFlag{
					Name:    "size",
					Aliases: []string{"s"},
					Value:   240,
					Usage:   "image width and height in pixels",
				},
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   `output file or directory, "-" for stdout`,
				},
				&cli.BoolFlag{
					Name:  "inverted",
					Usage: "swap foreground and background",
				},
				&cli.BoolFlag{
					Name:  "padded",
					Usage: "surround the pattern with half a cell of background",
				},
				&cli.IntFlag{
					Name:  "quiet-zone",
					Usage: "background border in pixels",
				},
			),
			Action: generate,
		},
		{
			Name:        "serve",
			Usage:       "Serve identicons over HTTP",
			Description: "Every URL path is an identifier; a 32 character hexadecimal path is used as a precomputed digest. Prometheus metrics are exposed at /metrics.",
			ArgsUsage:   " ",
			Flags: append(themeFlags(),
				&cli.StringFlag{
					Name:    "host",
					EnvVars: []string{"HOST"},
					Value:   "127.0.0.1",
					Usage:   "address to listen on",
				},
				&cli.IntFlag{
					Name:    "port",
					EnvVars: []string{"PORT"},
					Value:   8080,
					Usage:   "port to listen on",
				},
				&cli.StringFlag{
					Name:    "db",
					EnvVars: []string{"SIGIL_DB"},
					Usage:   "path to the render cache database",
				},
				&cli.IntFlag{
					Name:  "width",
					Value: server.DefaultWidth,
					Usage: "default image width in pixels",
				},
				&cli.IntFlag{
					Name:  "max-width",
					Value: server.DefaultMaxWidth,
					Usage: "maximum image width in pixels",
				},
			),
			Action: serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
