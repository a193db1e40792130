package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/tubeq/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchFile is a YAML download list. URLs may be listed one by one or pasted
// as free text under text; both are combined and deduplicated.
type BatchFile struct {
	Output  string   `yaml:"output,omitempty"`
	Quality string   `yaml:"quality,omitempty"`
	Audio   bool     `yaml:"audio,omitempty"`
	Subs    bool     `yaml:"subs,omitempty"`
	Lang    string   `yaml:"lang,omitempty"`
	URLs    []string `yaml:"urls"`
	Text    string   `yaml:"text,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var flags downloadFlags
	cmd := &cobra.Command{
		Use:   "batch YAML_FILE",
		Short: "Download every URL listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading batch file: %w", err)
			}
			batch, urls, err := parseBatchFile(data)
			if err != nil {
				return err
			}
			if batch.Output != "" && outputDir == "" {
				settings.DownloadFolder = batch.Output
			}
			if !cmd.Flags().Changed("quality") && batch.Quality != "" {
				flags.quality = batch.Quality
			}
			if !cmd.Flags().Changed("lang") && batch.Lang != "" {
				flags.lang = batch.Lang
			}
			flags.audioOnly = flags.audioOnly || batch.Audio
			flags.subtitles = flags.subtitles || batch.Subs
			return download(urls, flags)
		},
	}
	addDownloadFlags(cmd, &flags)
	return cmd
}

func parseBatchFile(data []byte) (BatchFile, []string, error) {
	var batch BatchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return batch, nil, fmt.Errorf("error parsing batch file: %w", err)
	}
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	for _, u := range batch.URLs {
		add(u)
	}
	for _, u := range utils.ParseURLs(batch.Text) {
		add(u)
	}
	if len(urls) == 0 {
		return batch, nil, fmt.Errorf("no URLs found in the batch file")
	}
	return batch, urls, nil
}
