package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/smazurov/lightnode/internal/pattern"
	"github.com/spf13/cobra"
)

// CreatePatternCmd creates the pattern command and its subcommands.
func CreatePatternCmd() *cobra.Command {
	var start, end uint8

	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Inspect and generate pattern files",
	}
	cmd.PersistentFlags().Uint8Var(&start, "channel-start", 0, "First channel of the light")
	cmd.PersistentFlags().Uint8Var(&end, "channel-end", 0, "Last channel of the light")

	channels := func() pattern.ChannelRange { return pattern.NewChannelRange(start, end) }

	cmd.AddCommand(
		createValidateCmd(channels),
		createShowCmd(channels),
		createFadeCmd(channels),
	)
	return cmd
}

func createValidateCmd(channels func() pattern.ChannelRange) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse a pattern file and report rejected lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pat, rejects, err := decodeFile(args[0], channels())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, reject := range rejects {
				fmt.Fprintln(out, reject.Error())
			}
			fmt.Fprintf(out, "%s: %d frames, %d channels, %d rejected lines\n",
				args[0], pat.Len(), len(channels().Channels()), len(rejects))

			if strict && len(rejects) > 0 {
				return fmt.Errorf("%d malformed lines in %s", len(rejects), args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any line is rejected")
	return cmd
}

func createShowCmd(channels func() pattern.ChannelRange) *cobra.Command {
	var hex bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Render every frame of a pattern in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pat, _, err := decodeFile(args[0], channels())
			if err != nil {
				return err
			}
			renderPattern(cmd.OutOrStdout(), pat, hex)
			return nil
		},
	}
	cmd.Flags().BoolVar(&hex, "hex", false, "Print hex values next to the swatches")
	return cmd
}

func createFadeCmd(channels func() pattern.ChannelRange) *cobra.Command {
	var from, to, easing string
	var frames int

	cmd := &cobra.Command{
		Use:   "fade <out>",
		Short: "Write a pattern fading between two colors",
		Long:  `Generates a fade in Lab space over every channel. Use "-" as the output to print to stdout.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromColor, err := pattern.ParseHex(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toColor, err := pattern.ParseHex(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			fn, err := pattern.LookupEasing(easing)
			if err != nil {
				return err
			}

			pat, err := pattern.Fade(fromColor, toColor, frames, channels(), fn)
			if err != nil {
				return err
			}

			data := pattern.Encode(pat)
			if args[0] == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s\n", pat.Len(), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "#000000", "Start color")
	cmd.Flags().StringVar(&to, "to", "#ffffff", "End color")
	cmd.Flags().IntVar(&frames, "frames", 16, "Number of frames (2-256)")
	cmd.Flags().StringVar(&easing, "ease", "linear", "Easing: "+strings.Join(pattern.EasingNames(), ", "))
	return cmd
}

func decodeFile(path string, r pattern.ChannelRange) (pattern.Pattern, []*pattern.ParseError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pattern.Pattern{}, nil, err
	}
	parser := pattern.Parser{
		Range:  r,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return parser.Decode(data)
}

var frameLabel = lipgloss.NewStyle().Width(6).Bold(true)

func renderPattern(w io.Writer, pat pattern.Pattern, hex bool) {
	if pat.Empty() {
		fmt.Fprintln(w, "(empty pattern)")
		return
	}

	for i := 0; i < pat.Len(); i++ {
		number, frame, _ := pat.At(i)

		var row strings.Builder
		row.WriteString(frameLabel.Render(fmt.Sprintf("F%d", number)))
		for _, ch := range frame.Channels() {
			c := frame[ch]
			swatch := lipgloss.NewStyle().Background(lipgloss.Color(c.Hex())).Render("  ")
			row.WriteString(swatch)
			if hex {
				row.WriteString(" " + c.Hex() + " ")
			}
		}
		fmt.Fprintln(w, row.String())
	}
}
