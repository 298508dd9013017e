package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coremint/coremint/internal/asset"
	"github.com/coremint/coremint/internal/storage"
	"github.com/coremint/coremint/internal/upload"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(newMetadataCmd())
}

func newMetadataCmd() *cobra.Command {
	var (
		media    string
		extras   []string
		template string
		meta     asset.Metadata
	)

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Upload asset media and extras, then the metadata document pointing at them",
		Example: `  coremint metadata --media art.png --name "Piece #1" --template base.yaml
  coremint metadata --media https://example.com/clip.mp4 --extra poster.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if media == "" {
				return fmt.Errorf("--media is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			doc := asset.Metadata{}
			if template != "" {
				if doc, err = loadTemplate(template); err != nil {
					return err
				}
			}
			overlay(&doc, meta)

			signer, err := cfg.Signer()
			if err != nil {
				return err
			}
			backend, err := storage.New(cmd.Context(), &cfg.Storage, signer)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			token, stop := upload.WatchInterrupt(cmd.Context())
			defer stop()

			minter := asset.NewMinter(backend, nil, &cfg.Compute, upload.WithChunkSize(cfg.Upload.ChunkSize))
			prepared, err := minter.PrepareMetadata(token.Context(), requestFor(media), requestsFor(extras), doc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, bold.Render("Metadata uploaded"))
			fmt.Fprintf(w, "  %-9s %s\n", "metadata", cyan.Render(prepared.MetadataURI))
			fmt.Fprintf(w, "  %-9s %s\n", "media", prepared.MediaURI)
			for _, f := range prepared.Report.Failed {
				fmt.Fprintf(w, "  %s %s: %s\n", red.Render("✗"), f.FailedURI, gray.Render(f.Error))
			}
			return nil
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&media, "media", "m", "", "primary media file path or URL")
	cmd.Flags().StringSliceVarP(&extras, "extra", "x", nil, "additional file path or URL listed in properties.files, may be repeated")
	cmd.Flags().StringVarP(&template, "template", "t", "", "JSON or YAML metadata document to start from")
	cmd.Flags().StringVar(&meta.Name, "name", "", "asset name, defaults to the media file name")
	cmd.Flags().StringVar(&meta.Symbol, "symbol", "", "asset symbol")
	cmd.Flags().StringVar(&meta.Description, "description", "", "asset description")
	cmd.Flags().StringVar(&meta.ExternalURL, "external-url", "", "asset external url")
	cmd.Flags().Int("chunk-size", upload.DefaultChunkSize, "uploads in flight per chunk")
	return cmd
}

// requestFor treats http(s) sources as URLs and everything else as a local path.
func requestFor(source string) upload.Request {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return upload.Request{FileURL: source}
	}
	return upload.Request{FilePath: source}
}

func requestsFor(sources []string) []upload.Request {
	requests := make([]upload.Request, 0, len(sources))
	for _, s := range sources {
		requests = append(requests, requestFor(s))
	}
	return requests
}

func loadTemplate(path string) (asset.Metadata, error) {
	var doc asset.Metadata
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read template: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return doc, fmt.Errorf("parse template %s: %w", path, err)
	}
	return doc, nil
}

// overlay copies the non-empty flag values onto doc.
func overlay(doc *asset.Metadata, flags asset.Metadata) {
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&doc.Name, flags.Name},
		{&doc.Symbol, flags.Symbol},
		{&doc.Description, flags.Description},
		{&doc.ExternalURL, flags.ExternalURL},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
}
