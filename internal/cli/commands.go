package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chat2video/chat2video/internal/audio"
	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/engine"
	"github.com/chat2video/chat2video/internal/render"
	"github.com/chat2video/chat2video/internal/system"
	"github.com/chat2video/chat2video/internal/timeline"
	"github.com/chat2video/chat2video/internal/video"
)

// newEngine loads the input documents and assembles the driver. A
// structural error in the conversation surfaces here, before any work.
func newEngine() (*engine.Engine, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	if flagOutputDir != "" {
		settings.OutputDir = flagOutputDir
	}
	if flagWorkers > 0 {
		settings.Workers = flagWorkers
	}
	if flagKeepTemp {
		settings.KeepTemp = true
	}

	conv, err := conversation.Load(flagConversation)
	if err != nil {
		return nil, err
	}
	style, err := config.LoadStyle(flagStyle)
	if err != nil {
		return nil, err
	}

	e := engine.New(conv, style, settings)
	e.Encoder = &video.FFmpegEncoder{FFmpeg: settings.FFmpegBin, FPS: settings.FPS}
	if settings.TTSCommand != "" {
		e.Synth = &audio.CommandSynthesizer{Command: settings.TTSCommand, FFprobe: settings.FFprobeBin}
	}
	if err := os.MkdirAll(settings.OutputDir, 0755); err != nil {
		return nil, err
	}
	return e, nil
}

func writeTimeline(stream *timeline.Stream) error {
	if flagTimelineOut == "" {
		return nil
	}
	if err := timeline.WriteStream(stream, flagTimelineOut); err != nil {
		return err
	}
	fmt.Printf("[*] Timeline written: %s\n", flagTimelineOut)
	return nil
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Emit render instructions for every message block",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		stream, err := e.Compose(context.Background(), timeline.ModeImages)
		if err != nil {
			return err
		}

		insts := render.Instructions(stream)
		outPath := filepath.Join(e.Settings.OutputDir, "render_instructions.yaml")
		data, err := yaml.Marshal(insts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return err
		}
		fmt.Printf("[*] %d render instructions written: %s\n", len(insts), outPath)
		for _, inst := range insts {
			fmt.Printf("[>] #%d %-12s [%6.2f, %6.2f) -> %s\n",
				inst.Index, inst.Role, inst.Start, inst.Start+inst.Duration,
				filepath.Base(render.ImagePath(e.Settings.OutputDir, inst)))
		}
		if err := writeTimeline(stream); err != nil {
			return err
		}
		e.ReportSummary()
		return nil
	},
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Schedule the conversation and mux a silent video from rendered images",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		stream, err := e.Compose(context.Background(), timeline.ModeImages)
		if err != nil {
			return err
		}
		if err := writeTimeline(stream); err != nil {
			return err
		}

		if !system.HasBinary(e.Settings.FFmpegBin) {
			fmt.Printf("[!] %s not found on PATH, skipping the mux step\n", e.Settings.FFmpegBin)
			e.ReportSummary()
			return nil
		}
		out := filepath.Join(e.Settings.OutputDir, "conversation_video.mp4")
		if err := e.Encode(context.Background(), stream, e.Settings.OutputDir, out); err != nil {
			return err
		}
		fmt.Printf("%s Total duration: %.2fs -> %s\n", color.GreenString("[+++]"), stream.Total, out)
		e.ReportSummary()
		return nil
	},
}

var finalCmd = &cobra.Command{
	Use:   "final",
	Short: "Schedule with narration, reconcile real audio durations and mux the final video",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		defer e.Cleanup()

		stream, err := e.Compose(context.Background(), timeline.ModeAudio)
		if err != nil {
			return err
		}
		if err := writeTimeline(stream); err != nil {
			return err
		}

		if !system.HasBinary(e.Settings.FFmpegBin) {
			fmt.Printf("[!] %s not found on PATH, skipping the mux step\n", e.Settings.FFmpegBin)
			e.ReportSummary()
			return nil
		}
		out := filepath.Join(e.Settings.OutputDir, "final_video.mp4")
		if err := e.Encode(context.Background(), stream, e.Settings.OutputDir, out); err != nil {
			return err
		}
		fmt.Printf("%s Total duration: %.2fs -> %s\n", color.GreenString("[+++]"), stream.Total, out)
		e.ReportSummary()
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Compute and print the event stream without touching any sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		withAudio, _ := cmd.Flags().GetBool("audio")
		mode := timeline.ModeImages
		if withAudio {
			mode = timeline.ModeAudio
		}

		e, err := newEngine()
		if err != nil {
			return err
		}
		defer e.Cleanup()

		stream, err := e.Compose(context.Background(), mode)
		if err != nil {
			return err
		}
		doc := timeline.ToDocument(stream)
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		if err := writeTimeline(stream); err != nil {
			return err
		}
		e.ReportSummary()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chat2video version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chat2video %s\n", version)
	},
}

func init() {
	timelineCmd.Flags().Bool("audio", false, "schedule in images+audio mode (requires a TTS command)")
}
