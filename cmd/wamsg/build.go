package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lojasmm/wamsg/internal/thumbnail"
	"github.com/lojasmm/wamsg/internal/whatsapp"
)

var (
	buildFile   string
	buildStrict bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a message envelope from an intent and print it",
	Long: `Reads a message intent as JSON (from --file or stdin), builds the
matching interactive payload and prints the validated envelope.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildFile, "file", "f", "-", "intent JSON file, - for stdin")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "reject intents with more than one variant")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	in := cmd.InOrStdin()
	if buildFile != "-" {
		f, err := os.Open(buildFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	msg, err := buildEnvelope(cmd, in, buildStrict)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(msg)
}

func buildEnvelope(cmd *cobra.Command, in io.Reader, strict bool) (*whatsapp.Message, error) {
	var intent whatsapp.MessageIntent
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&intent); err != nil {
		return nil, fmt.Errorf("decoding intent: %w", err)
	}

	b := whatsapp.NewBuilder(
		whatsapp.WithThumbnails(thumbnail.NewImageGenerator(thumbnail.DefaultWidth)),
		whatsapp.WithStrict(strict),
	)
	content, err := b.Build(cmd.Context(), &intent)
	if err != nil {
		return nil, err
	}
	msg, err := whatsapp.Wrap(content)
	if err != nil {
		return nil, err
	}
	if err := whatsapp.ValidateMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
