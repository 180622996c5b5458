// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package commands

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/l3montree-dev/fod2sarif/cmd/fod2sarif/config"
	"github.com/l3montree-dev/fod2sarif/internal/export"
	"github.com/l3montree-dev/fod2sarif/internal/ratelimit"
	"github.com/l3montree-dev/fod2sarif/internal/storage"
	"github.com/l3montree-dev/fod2sarif/pkg/fod"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "export",
		Short:             "Export the static findings of a release into a SARIF file",
		DisableAutoGenTag: true,
		Long: `Export the static findings of a release into a SARIF file.

The release must have a completed static scan. Releases with more than 1000 issues are
exported partially: the lowest severities are left out until the rest fits.
Credentials are either an api key (--client-id, --client-secret) or a tenant, user and
personal access token (--tenant, --user, --password). The api key wins if both are set.`,
		Example: `  fod2sarif export --base-url https://ams.fortify.com --client-id $ID --client-secret $SECRET --release-id 1234 --output out/fod.sarif`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ParseBaseConfig(); err != nil {
				return err
			}

			cfg := config.RuntimeBaseConfig
			httpClient := fod.NewHTTPClient(time.Duration(cfg.Timeout) * time.Second)
			return runExport(cmd.Context(), cfg, httpClient, cmd.OutOrStdout())
		},
	}

	addExportFlags(cmd)
	return cmd
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", "", "The url of your Fortify on Demand instance, e.g. https://ams.fortify.com")
	cmd.Flags().String("tenant", "", "The tenant code, used together with --user and --password")
	cmd.Flags().String("user", "", "The user name, used together with --tenant and --password")
	cmd.Flags().String("password", "", "The password or personal access token of the user")
	cmd.Flags().String("client-id", "", "The api key")
	cmd.Flags().String("client-secret", "", "The api secret")
	cmd.Flags().String("release-id", "", "The id of the release to export")
	cmd.Flags().StringP("output", "o", "", "The path of the SARIF file. Missing directories are created.")

	cmd.Flags().Int("timeout", 60, "Timeout of a single request in seconds")
	cmd.Flags().Int("rate", 2, "Maximum number of detail requests started per window")
	cmd.Flags().Int("rate-per", 4000, "Length of the rate limit window in milliseconds")
	cmd.Flags().Int("concurrent", 1, "Maximum number of detail requests in flight")
	cmd.Flags().Bool("summary", true, "Print a summary table after the export")

	cmd.Flags().String("s3-endpoint", "", "Upload the SARIF file to this s3 compatible endpoint, e.g. minio:9000")
	cmd.Flags().String("s3-access-key", "", "The s3 access key")
	cmd.Flags().String("s3-secret-key", "", "The s3 secret key")
	cmd.Flags().Bool("s3-use-ssl", true, "Use https to talk to the s3 endpoint")
	cmd.Flags().String("s3-region", "", "The region of the bucket. Skips the bucket location lookup if set")
	cmd.Flags().String("s3-bucket", "", "The bucket to upload the SARIF file to. No upload if empty")
	cmd.Flags().String("s3-key", "", "The object key (default: file name of --output)")
}

func runExport(ctx context.Context, cfg config.Config, httpClient *http.Client, out io.Writer) error {
	runID := uuid.New().String()
	slog.Info("starting export", "releaseId", cfg.ReleaseID, "runId", runID)

	apiBaseURL, err := fod.APIBaseURL(cfg.BaseURL)
	if err != nil {
		return err
	}

	session, err := fod.Authenticate(ctx, apiBaseURL, cfg.Credentials(), httpClient)
	if err != nil {
		return errors.Wrap(err, "could not authenticate")
	}

	limiter, err := ratelimit.New(cfg.Rate, time.Duration(cfg.RatePer)*time.Millisecond, cfg.Concurrent)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(fod.NewClient(session, httpClient), limiter, export.Options{
		ReleaseID:   cfg.ReleaseID,
		WebUI:       cfg.BaseURL,
		Concurrency: cfg.Concurrent,
		RunGUID:     runID,
	})

	doc, err := exporter.Export(ctx)
	if err != nil {
		return err
	}

	if err := storage.WriteDocument(cfg.Output, doc); err != nil {
		return err
	}
	slog.Info("wrote sarif document", "path", cfg.Output)

	if cfg.S3Bucket != "" {
		if err := uploadDocument(ctx, cfg); err != nil {
			return err
		}
	}

	if cfg.Summary {
		printSummary(out, doc)
	}
	return nil
}

func uploadDocument(ctx context.Context, cfg config.Config) error {
	client, err := storage.NewS3Client(storage.S3Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Region:    cfg.S3Region,
	})
	if err != nil {
		return err
	}

	key := storage.ObjectKey(cfg.S3Key, cfg.Output)
	if err := client.UploadFile(ctx, cfg.S3Bucket, key, cfg.Output); err != nil {
		return err
	}
	slog.Info("uploaded sarif document", "bucket", cfg.S3Bucket, "key", key)
	return nil
}
