package cmd

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"mime"
	"os"
	"path/filepath"
	"praxis-recording/config"
	"praxis-recording/pkg/uploader"
)

func importFile(cfg *config.Config) *cobra.Command {
	var (
		apiURL   string
		token    string
		clientId string
		mimeType string
		maxBytes int64
		bitrate  int64
	)

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "upload an existing audio file as a completed recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := config.SetupLogger(cfg)

			client, err := uuid.Parse(clientId)
			if err != nil {
				return fmt.Errorf("invalid --client-id: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[0]))
			}

			importer := uploader.NewImporter(uploader.NewClient(apiURL, token))
			out, err := importer.Import(ctx, f, info.Size(), uploader.ImportOptions{
				ClientId:       client,
				MimeType:       mimeType,
				MaxChunkBytes:  maxBytes,
				AssumedBitrate: bitrate,
				OnProgress: func(p uploader.ImportProgress) {
					zerolog.Ctx(ctx).Info().Int("uploaded", p.Uploaded).Int("total", p.Total).Msg("chunk uploaded")
				},
			})
			if err != nil {
				return err
			}

			zerolog.Ctx(ctx).Info().
				Str("recording_id", out.Recording.ID.String()).
				Str("session_id", out.SessionId.String()).
				Msg("import completed")
			return nil
		},
	}

	importCmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "base url of the recordings api")
	importCmd.Flags().StringVar(&token, "token", os.Getenv("PRAXIS_TOKEN"), "bearer token of the caller")
	importCmd.Flags().StringVar(&clientId, "client-id", "", "client the session belongs to")
	importCmd.Flags().StringVar(&mimeType, "mime-type", "", "audio mime type, derived from the file extension when empty")
	importCmd.Flags().Int64Var(&maxBytes, "max-chunk-bytes", uploader.DefaultMaxChunkBytes, "largest chunk sent in one request")
	importCmd.Flags().Int64Var(&bitrate, "bitrate", uploader.DefaultAssumedBitrate, "assumed bitrate in bits per second, used to estimate timestamps")
	_ = importCmd.MarkFlagRequired("client-id")

	return importCmd
}
