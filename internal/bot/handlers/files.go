package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handlers) handleAddFile(msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID,
		"📂 Send me an .xlsx file with the columns:\n"+
			"- Event\n- Date (DD.MM.YYYY)\n- Time (HH:MM)\n- Remind before (days)\n"+
			"- Repeat (none/monthly)\n- Periodicity (months)\n- Responsible IDs\n- Email")
}

func (h *Handlers) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	doc := msg.Document
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		h.sendMessage(msg.Chat.ID, "❌ Only .xlsx files are supported")
		return
	}

	path, err := h.downloadDocument(doc)
	if err != nil {
		h.log.Error().Err(err).Str("file", doc.FileName).Msg("failed to download document")
		h.sendMessage(msg.Chat.ID, "❌ Could not download the file, try again")
		return
	}
	defer os.Remove(path)

	label := strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	result, err := h.ingest.ProcessFile(ctx, path, msg.From.ID, label)
	if err != nil {
		h.log.Error().Err(err).Str("file", doc.FileName).Msg("failed to process spreadsheet")
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("❌ Could not process the file: %v", err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ File processed: %d event(s) saved.\n", result.Created)
	if len(result.Errors) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ %d row(s) skipped:\n", len(result.Errors))
		for _, rowErr := range result.Errors {
			fmt.Fprintf(&sb, "• %v\n", rowErr)
		}
	}
	h.sendChunked(msg.Chat.ID, sb.String())
}

func (h *Handlers) downloadDocument(doc *tgbotapi.Document) (string, error) {
	file, err := h.api.GetFile(tgbotapi.FileConfig{FileID: doc.FileID})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}

	resp, err := http.Get(file.Link(h.api.Token))
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch file: %s", resp.Status)
	}

	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	out, err := os.CreateTemp(h.tempDir, "upload-*.xlsx")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("save file: %w", err)
	}
	return out.Name(), nil
}
