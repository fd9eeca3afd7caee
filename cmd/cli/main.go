// Package main provides the CLI tool for neo-image.
// Uses Cobra for command parsing, the same framework kubectl and hugo use.
//
// Run with: go run ./cmd/cli auto --width 800 --height 600
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/app"
	"github.com/jacerider/neo-image/internal/config"
	"github.com/jacerider/neo-image/internal/handler"
	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/style"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd creates the root command. Cobra builds a tree of commands:
// neo-cli auto --width 800
// neo-cli styles flush --all --kinds f
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "neo-cli",
		Short:        "neo-image style tools",
		SilenceUsage: true,
	}

	root.AddCommand(autoCmd(), decodeCmd(), stylesCmd(), generateCmd(), pictureCmd())
	return root
}

// autoCmd needs no storage: it only runs the style builder.
func autoCmd() *cobra.Command {
	var width, height int
	var dims []string

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Pick a style identifier for the given dimensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dims) == 0 {
				s := style.New()
				if err := s.Auto(width, height); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Encode(), s.Label())
				return nil
			}

			set, err := parseDimensionSet(dims)
			if err != nil {
				return err
			}
			p := model.NewPicture("", "", "")
			if err := p.AutoFromDimensions(set); err != nil {
				return err
			}
			for _, line := range model.SummarizeDimensions(set) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			for _, sized := range p.Styles() {
				if sized.Style.EffectCount() > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", sized.Breakpoint.Size, sized.Style.Encode())
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Target height in pixels")
	cmd.Flags().StringArrayVar(&dims, "dim", nil, "Breakpoint dimensions, e.g. md=800x600, sm=640, lg=x300 (repeatable)")
	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <style>",
		Short: "Validate a style identifier and describe its effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := style.DecodeStrict(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "canonical: %s\n", s.Encode())
			fmt.Fprintf(out, "label:     %s\n", s.Label())
			for _, e := range s.Effects() {
				fmt.Fprintf(out, "  %-22s %s\n", e.Kind().Name(), e.Label())
			}
			return nil
		},
	}
}

func stylesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "Inspect and flush stored styles",
	}

	var kinds []string
	list := &cobra.Command{
		Use:   "list",
		Short: "List styles that have derivatives in storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				entries, err := a.Registry.Styles(ctx, style.ParseKinds(kinds)...)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.ID, e.Label)
				}
				return nil
			})
		},
	}
	list.Flags().StringSliceVar(&kinds, "kinds", nil, "Only styles containing these effect keys (r,s,c,sc,f,fw)")

	options := &cobra.Command{
		Use:   "options",
		Short: "List stored single-effect styles usable as preset sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				opts, err := a.Registry.SizeOptions(ctx)
				if err != nil {
					return err
				}
				for _, o := range opts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", o.DimensionKey, o.ID, o.Label)
				}
				return nil
			})
		},
	}

	var all bool
	var flushKinds []string
	flush := &cobra.Command{
		Use:   "flush [style]",
		Short: "Delete every derivative of a style, or of all styles with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either a style identifier or --all")
			}
			return withApp(func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				if !all {
					if err := a.Service.Flush(ctx, args[0]); err != nil {
						return err
					}
					logger.Info("Flushed style", zap.String("style", args[0]))
					return nil
				}
				flushed, err := a.Service.FlushAll(ctx, style.ParseKinds(flushKinds)...)
				if err != nil {
					return err
				}
				logger.Info("Flushed styles", zap.Strings("styles", flushed))
				return nil
			})
		},
	}
	flush.Flags().BoolVar(&all, "all", false, "Flush every stored style")
	flush.Flags().StringSliceVar(&flushKinds, "kinds", nil, "With --all, only styles containing these effect keys")

	cmd.AddCommand(list, options, flush)
	return cmd
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <style> <uri>",
		Short: "Render and store a derivative ahead of the first request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				img, err := a.Service.Generate(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				u, err := a.Service.URL(style.Canonical(args[0]), args[1])
				if err != nil {
					return err
				}
				logger.Info("Derivative ready",
					zap.String("url", u),
					zap.Int("bytes", len(img.Data)),
					zap.Bool("cached", img.Cached),
				)
				return nil
			})
		},
	}
}

func pictureCmd() *cobra.Command {
	var alt, title string
	var dims []string
	var html bool

	cmd := &cobra.Command{
		Use:   "picture <uri>",
		Short: "Print the responsive sources of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App, logger *zap.Logger) error {
				if _, _, err := model.ParseURI(args[0]); err != nil {
					return err
				}
				set := a.Config.Picture.Dimensions
				if len(dims) > 0 {
					var err error
					if set, err = parseDimensionSet(dims); err != nil {
						return err
					}
				}

				p := model.NewPicture(args[0], alt, title)
				if err := p.AutoFromDimensions(set); err != nil {
					return err
				}
				view, err := a.Service.PictureSources(p)
				if err != nil {
					return err
				}

				if html {
					return handler.Templates().ExecuteTemplate(cmd.OutOrStdout(), handler.PictureTemplate, view)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			})
		},
	}

	cmd.Flags().StringVar(&alt, "alt", "", "Alternative text")
	cmd.Flags().StringVar(&title, "title", "", "Title attribute")
	cmd.Flags().StringArrayVar(&dims, "dim", nil, "Breakpoint dimensions, e.g. md=800x600 (defaults to picture.dimensions)")
	cmd.Flags().BoolVar(&html, "html", false, "Print <picture> markup instead of JSON")
	return cmd
}

// withApp loads config, builds the components and runs fn with a context
// that is cancelled on Ctrl+C.
func withApp(fn func(ctx context.Context, a *app.App, logger *zap.Logger) error) error {
	configPath := os.Getenv("NEO_CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Always use development mode for the CLI
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, logger)
}

// parseDimensionSet reads "size=WxH" pairs. Either side of the x may be
// empty, and a bare number is a width: "sm=640", "lg=x300", "md=800x600".
func parseDimensionSet(values []string) (model.DimensionSet, error) {
	set := make(model.DimensionSet, len(values))
	for _, v := range values {
		size, spec, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid dimension %q: expected size=WxH", v)
		}
		if !model.ValidBreakpoint(size) {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidBreakpoint, size)
		}
		w, h, _ := strings.Cut(spec, "x")
		var d model.Dimensions
		var err error
		if w != "" {
			if d.Width, err = strconv.Atoi(w); err != nil {
				return nil, fmt.Errorf("invalid width in %q: %w", v, err)
			}
		}
		if h != "" {
			if d.Height, err = strconv.Atoi(h); err != nil {
				return nil, fmt.Errorf("invalid height in %q: %w", v, err)
			}
		}
		set[size] = d
	}
	return set, nil
}
