package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/chat2video/chat2video/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"       _           _   ____       _     _\n" +
		"   ___| |__   __ _| |_|___ \\__   _(_) __| | ___  ___\n" +
		"  / __| '_ \\ / _` | __| __) \\ \\ / / |/ _` |/ _ \\/ _ \\\n" +
		" | (__| | | | (_| | |_ / __/ \\ V /| | (_| |  __/ (_) |\n" +
		"  \\___|_| |_|\\__,_|\\__|_____| \\_/ |_|\\__,_|\\___|\\___/\n"
)

var (
	flagConversation string
	flagStyle        string
	flagOutputDir    string
	flagTimelineOut  string
	flagWorkers      int
	flagKeepTemp     bool
)

var rootCmd = &cobra.Command{
	Use:   "chat2video",
	Short: "chat2video - turn a scripted conversation into a synchronized video timeline",
	Long: color.CyanString(logo) +
		"\nParses a conversation document, lays out every message block and\n" +
		"schedules display, narration and sound-effect events onto one timeline.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConversation, "conversation", "c", "conversation.json", "path to the conversation JSON document")
	pf.StringVarP(&flagStyle, "style", "s", "config.json", "path to the style/profile JSON document")
	pf.StringVarP(&flagOutputDir, "output-dir", "o", "", "output directory (default from CHAT2VIDEO_OUTPUT_DIR)")
	pf.StringVar(&flagTimelineOut, "timeline", "", "also write the timeline document to this YAML path")
	pf.IntVar(&flagWorkers, "workers", 0, "TTS worker count (0 = auto)")
	pf.BoolVar(&flagKeepTemp, "keep-temp", false, "keep synthesized audio clips after the run")

	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(finalCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(versionCmd)
}
