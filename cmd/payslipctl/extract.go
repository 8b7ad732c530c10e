package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"payslipx/internal/app"
	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/llm"
	_ "payslipx/internal/llm/claude"
	_ "payslipx/internal/llm/gemini"
	_ "payslipx/internal/llm/openai"
	"payslipx/internal/repository/sqlite"
	"payslipx/internal/textextract"
)

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract a payslip from a PDF, image or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			req, err := buildRequest(filepath.Base(args[0]), data, cfg.Pipeline.MaxTextBytes)
			if err != nil {
				return err
			}
			req.DeviceID = opts.deviceID

			db, err := openLedger(opts, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			client, err := llm.NewClientChain(&cfg.LLM)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}
			ledger := app.NewLedger(cfg, sqlite.NewUsageRepo(db), nil)
			pipeline, err := app.NewPipeline(cfg, client, ledger, nil, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			stderr := cmd.ErrOrStderr()
			res, err := pipeline.Service.Extract(ctx, req, func(stage domain.Stage, progress float64) {
				fmt.Fprintf(stderr, "%-11s %3.0f%%\n", stage, progress*100)
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

// buildRequest picks the extraction mode from the file content. PDFs are
// reduced to their text layer.
func buildRequest(name string, data []byte, maxTextBytes int) (domain.ExtractionRequest, error) {
	if textextract.IsPDF(data) {
		text, err := textextract.PDFText(data, maxTextBytes)
		if err != nil {
			return domain.ExtractionRequest{}, fmt.Errorf("%s: %w", name, err)
		}
		return domain.ExtractionRequest{Payload: []byte(text), Mode: domain.ModeText}, nil
	}

	mimeType := http.DetectContentType(data)
	if _, ok := domain.AllowedImageTypes[mimeType]; ok {
		return domain.ExtractionRequest{Payload: data, Mode: domain.ModeVision, MimeType: mimeType}, nil
	}
	if strings.HasPrefix(mimeType, "text/plain") {
		return domain.ExtractionRequest{Payload: data, Mode: domain.ModeText}, nil
	}
	return domain.ExtractionRequest{}, fmt.Errorf("%s (%s): %w", name, mimeType, domain.ErrUnsupportedType)
}
