// Package main provides the CLI entry point for stickerpress.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/stickerpress/pkg/adapters/filesink"
	"github.com/user/stickerpress/pkg/adapters/framegen"
	"github.com/user/stickerpress/pkg/adapters/logger"
	"github.com/user/stickerpress/pkg/adapters/mediasource"
	"github.com/user/stickerpress/pkg/adapters/nullsink"
	"github.com/user/stickerpress/pkg/adapters/osfilesystem"
	"github.com/user/stickerpress/pkg/adapters/vpxencoder"
	"github.com/user/stickerpress/pkg/orchestrator"
	"github.com/user/stickerpress/pkg/pipeline"
	"github.com/user/stickerpress/pkg/ports"
	"github.com/user/stickerpress/pkg/stages/dualencode"
	"github.com/user/stickerpress/pkg/stickerpress"
	"github.com/user/stickerpress/pkg/webm"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Convert ConvertCmd `cmd:"" help:"Convert an animation into a transparent WebM sticker."`
	Synth   SynthCmd   `cmd:"" help:"Generate a synthetic test animation and convert it."`
	Inspect InspectCmd `cmd:"" help:"Show the track layout of a WebM file."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// ConvertCmd defines the convert subcommand.
type ConvertCmd struct {
	// Required arguments
	Input  string `arg:"" help:"Input animation file (GIF, PNG or WebP)."`
	Output string `short:"o" required:"" help:"Output WebM file path."`

	// Preset
	Preset string `short:"p" default:"sticker" enum:"sticker,emoji" help:"Target preset (sticker or emoji)."`

	// Budget overrides
	MaxBytes      *int `help:"Output size limit in bytes (default from preset)."`
	MaxDurationMs *int `help:"Maximum playback span in milliseconds."`
	LongestSide   *int `short:"s" help:"Longest output side in pixels (default from preset)."`

	// Encoding
	FPS *float64 `help:"Nominal frame rate (default: 30)."`

	// Search options
	Workers *int `short:"w" help:"Concurrent candidate evaluations (default: 1)."`

	// Debug options
	Debug    bool   `short:"d" help:"Save evaluated candidates and the search report."`
	DebugDir string `default:"./debug" help:"Directory for debug output."`

	// Logging options
	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// SynthCmd defines the synth subcommand.
type SynthCmd struct {
	Output string `short:"o" required:"" help:"Output WebM file path."`

	Preset string  `short:"p" default:"sticker" enum:"sticker,emoji" help:"Target preset (sticker or emoji)."`
	Frames int     `default:"60" help:"Number of frames to generate."`
	FPS    float64 `default:"30" help:"Frame rate of the generated clip."`

	Debug    bool   `short:"d" help:"Save evaluated candidates and the search report."`
	DebugDir string `default:"./debug" help:"Directory for debug output."`

	LogLevel string `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	Quiet    bool   `short:"Q" help:"Suppress all log output."`
}

// InspectCmd defines the inspect subcommand.
type InspectCmd struct {
	Input string `arg:"" help:"WebM file to inspect."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("stickerpress"),
		kong.Description("Convert animations into budget-constrained transparent WebM stickers."),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run executes the convert command.
func (cmd *ConvertCmd) Run() error {
	cfg := cmd.buildConfig()
	log := newLogger(cmd.Quiet, cmd.LogLevel)

	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()

	data, err := fs.ReadFile(cmd.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	frames, err := mediasource.Decode(data, mediasource.Options{MaxDurationMs: cfg.MaxDurationMs})
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	log.Info(l10n.F("Decoded %d frames from %s", len(frames), cmd.Input))

	result, err := convert(ctx, frames, cfg, cmd.Debug, cmd.DebugDir, fs, log)
	if err != nil {
		return err
	}

	if err := fs.WriteFile(cmd.Output, result.WebM); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info(l10n.F("Output saved to %s (%d bytes)", cmd.Output, result.SizeBytes))
	if !result.BudgetMet {
		log.Warn(l10n.F("Best effort only: %d bytes exceeds the %d byte budget", result.SizeBytes, cfg.MaxBytes))
	}
	return nil
}

// Run executes the synth command.
func (cmd *SynthCmd) Run() error {
	cfg := stickerpress.NewPresetConfigBuilder(stickerpress.TargetPreset(cmd.Preset)).Build()
	log := newLogger(cmd.Quiet, cmd.LogLevel)

	ctx, cancel := signalContext(log)
	defer cancel()

	frames, err := framegen.BouncingBall(framegen.Options{
		Width:      cfg.TargetLongestSide,
		Height:     cfg.TargetLongestSide,
		FrameCount: cmd.Frames,
		FPS:        cmd.FPS,
	})
	if err != nil {
		return fmt.Errorf("generate frames: %w", err)
	}
	frames = mediasource.TrimToDuration(frames, cfg.MaxDurationMs)
	log.Info(l10n.F("Generated %d synthetic frames", len(frames)))

	fs := osfilesystem.New()
	result, err := convert(ctx, frames, cfg, cmd.Debug, cmd.DebugDir, fs, log)
	if err != nil {
		return err
	}

	if err := fs.WriteFile(cmd.Output, result.WebM); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info(l10n.F("Output saved to %s (%d bytes)", cmd.Output, result.SizeBytes))
	return nil
}

// Run executes the inspect command.
func (cmd *InspectCmd) Run() error {
	data, err := os.ReadFile(cmd.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	doc, err := webm.Parse(data)
	if err != nil {
		return fmt.Errorf("parse webm: %w", err)
	}

	fmt.Printf("doctype: %s\n", doc.DocType)
	fmt.Printf("duration: %.0f ms\n", doc.DurationMs)
	for _, track := range doc.Tracks {
		fmt.Printf("track %d: %s %dx%d alpha=%d additions=%d\n",
			track.Number, track.CodecID, track.PixelWidth, track.PixelHeight,
			track.AlphaMode, track.MaxBlockAdditionID)
	}
	keyframes := 0
	withAlpha := 0
	for _, blk := range doc.Blocks {
		if blk.Keyframe {
			keyframes++
		}
		if len(blk.Additional) > 0 {
			withAlpha++
		}
	}
	fmt.Printf("blocks: %d (%d keyframes, %d with alpha attachment)\n",
		len(doc.Blocks), keyframes, withAlpha)
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("stickerpress version %s", version))
	return nil
}

func (cmd *ConvertCmd) buildConfig() stickerpress.Config {
	builder := stickerpress.NewPresetConfigBuilder(stickerpress.TargetPreset(cmd.Preset))

	if cmd.MaxBytes != nil {
		builder.WithMaxBytes(*cmd.MaxBytes)
	}
	if cmd.MaxDurationMs != nil {
		builder.WithMaxDurationMs(*cmd.MaxDurationMs)
	}
	if cmd.LongestSide != nil {
		builder.WithTargetLongestSide(*cmd.LongestSide)
	}
	if cmd.FPS != nil {
		builder.WithFPS(*cmd.FPS)
	}
	if cmd.Workers != nil {
		builder.WithWorkers(*cmd.Workers)
	}

	return builder.Build()
}

func convert(
	ctx context.Context,
	frames []pipeline.Frame,
	cfg stickerpress.Config,
	debug bool,
	debugDir string,
	fs ports.FileSystem,
	log ports.Logger,
) (orchestrator.Result, error) {
	var sink ports.DebugSink
	if debug {
		if err := fs.MkdirAll(debugDir); err != nil {
			return orchestrator.Result{}, fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(debugDir, fs)
	} else {
		sink = nullsink.New()
	}

	encodeStage := dualencode.NewStage(vpxencoder.NewFactory(), log)
	orch := orchestrator.New(encodeStage, sink, log)

	return orch.Run(ctx, frames, cfg.ToOrchestratorConfig())
}

func newLogger(quiet bool, level string) ports.Logger {
	if quiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn(l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	return ctx, cancel
}
